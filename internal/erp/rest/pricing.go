package rest

import (
	"context"
	"errors"
	"strconv"

	"offerflow/internal"
	"offerflow/internal/erp"
)

type PricingService struct {
	client    *Client
	optimized bool
}

func NewPricingService(client *Client, optimized bool) *PricingService {
	return &PricingService{client: client, optimized: optimized}
}

func (s *PricingService) SupportsDiscountOptimization() bool { return s.optimized }

func (s *PricingService) PriceOffer(ctx context.Context, offer *internal.Offer) (*erp.OfferPricing, error) {
	if offer == nil || len(offer.Lines) == 0 {
		return nil, &erp.ValidationError{Field: "offer", Reason: "no lines to price"}
	}
	var pricing erp.OfferPricing
	if err := s.client.post(ctx, "pricing/offer", offer, &pricing); err != nil {
		return nil, err
	}
	return &pricing, nil
}

func (s *PricingService) PriceLine(ctx context.Context, customerNumber string, line internal.OfferLine) (*erp.LinePricing, error) {
	var pricing erp.LinePricing
	payload := struct {
		CustomerNumber string             `json:"customerNumber"`
		Line           internal.OfferLine `json:"line"`
	}{customerNumber, line}
	if err := s.client.post(ctx, "pricing/line", payload, &pricing); err != nil {
		return nil, err
	}
	return &pricing, nil
}

func (s *PricingService) CustomerDiscount(ctx context.Context, customerNumber string) (float64, error) {
	return s.discount(ctx, "pricing/discounts/customer/"+segment(customerNumber), nil)
}

func (s *PricingService) CustomerGroupDiscount(ctx context.Context, customerNumber string) (float64, error) {
	return s.discount(ctx, "pricing/discounts/customer-group/"+segment(customerNumber), nil)
}

func (s *PricingService) CatalogGroupDiscount(ctx context.Context, customerNumber string, groupCode int) (float64, error) {
	return s.discount(ctx, "pricing/discounts/catalog-group/"+segment(customerNumber), map[string]string{
		"group": strconv.Itoa(groupCode),
	})
}

func (s *PricingService) HistoricalPrice(ctx context.Context, customerNumber, productCode string) (*float64, error) {
	var payload struct {
		Price *float64 `json:"price"`
	}
	err := s.client.get(ctx, "pricing/history/"+segment(customerNumber)+"/"+segment(productCode), nil, &payload)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload.Price, nil
}

func (s *PricingService) discount(ctx context.Context, endpoint string, params map[string]string) (float64, error) {
	var payload struct {
		DiscountPct float64 `json:"discountPct"`
	}
	err := s.client.get(ctx, endpoint, params, &payload)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return payload.DiscountPct, nil
}
