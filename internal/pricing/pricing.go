package pricing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/erp"
)

type Result struct {
	Pricing   *erp.OfferPricing
	Optimized bool
	Warnings  []string
}

type Service struct {
	pricing erp.PricingService
	log     *zap.Logger
}

func NewService(pricing erp.PricingService, log *zap.Logger) *Service {
	return &Service{pricing: pricing, log: log}
}

func (s *Service) Price(ctx context.Context, customer *internal.Customer, matches []internal.ProductMatch) (*Result, error) {
	resolved := make([]internal.ProductMatch, 0, len(matches))
	for _, m := range matches {
		if m.Resolved() {
			resolved = append(resolved, m)
		}
	}
	if len(resolved) == 0 {
		return nil, &erp.ValidationError{Field: "matches", Reason: "no resolved products to price"}
	}

	if s.pricing.SupportsDiscountOptimization() {
		return s.priceOptimized(ctx, customer, resolved)
	}
	return s.priceComposed(ctx, customer, resolved)
}

func (s *Service) priceOptimized(ctx context.Context, customer *internal.Customer, matches []internal.ProductMatch) (*Result, error) {
	provisional := provisionalOffer(customer, matches)
	priced, err := s.pricing.PriceOffer(ctx, provisional)
	if err != nil {
		return nil, fmt.Errorf("price offer for customer %s: %w", customer.Number, err)
	}
	return &Result{Pricing: priced, Optimized: true}, nil
}

func (s *Service) priceComposed(ctx context.Context, customer *internal.Customer, matches []internal.ProductMatch) (*Result, error) {
	result := &Result{Pricing: &erp.OfferPricing{}}

	customerDiscount := s.discountOrZero(ctx, result, "customer discount", func() (float64, error) {
		return s.pricing.CustomerDiscount(ctx, customer.Number)
	})
	groupDiscount := s.discountOrZero(ctx, result, "customer group discount", func() (float64, error) {
		return s.pricing.CustomerGroupDiscount(ctx, customer.Number)
	})

	var netTotal float64
	for i, m := range matches {
		position := i + 1
		line := internal.OfferLine{
			Position:    position,
			ProductCode: m.Product.Code,
			Quantity:    m.RequestedQty,
			UnitPrice:   m.Product.UnitPrice,
		}

		lp := erp.LinePricing{Position: position, UnitPrice: m.Product.UnitPrice}
		if priced, err := s.pricing.PriceLine(ctx, customer.Number, line); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("line %d (%s): vendor pricing unavailable, using list price", position, m.Product.Code))
			s.log.Warn("line pricing fallback", zap.String("product", m.Product.Code), zap.Error(err))
		} else if priced != nil {
			lp.UnitPrice = priced.UnitPrice
			lp.DiscountPct = priced.DiscountPct
			lp.VATRate = priced.VATRate
		}

		catalogDiscount := s.discountOrZero(ctx, result, "catalog group discount", func() (float64, error) {
			return s.pricing.CatalogGroupDiscount(ctx, customer.Number, m.Product.GroupCode)
		})
		lp.DiscountPct = maxDiscount(lp.DiscountPct, customerDiscount, groupDiscount, catalogDiscount)

		if hist, err := s.pricing.HistoricalPrice(ctx, customer.Number, m.Product.Code); err == nil && hist != nil && *hist > 0 && *hist < lp.UnitPrice {
			lp.UnitPrice = *hist
		}

		netTotal += lp.UnitPrice * (1 - lp.DiscountPct/100) * m.RequestedQty
		result.Pricing.Lines = append(result.Pricing.Lines, lp)
	}

	result.Pricing.NetTotal = netTotal
	return result, nil
}

func (s *Service) discountOrZero(_ context.Context, result *Result, what string, fetch func() (float64, error)) float64 {
	discount, err := fetch()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s unavailable, assuming 0", what))
		s.log.Warn("discount lookup failed", zap.String("kind", what), zap.Error(err))
		return 0
	}
	return discount
}

func provisionalOffer(customer *internal.Customer, matches []internal.ProductMatch) *internal.Offer {
	o := &internal.Offer{CustomerID: customer.ID, CustomerNumber: customer.Number, Status: internal.OfferDraft}
	for _, m := range matches {
		o.AddLine(internal.OfferLine{
			ProductCode: m.Product.Code,
			ProductName: m.Product.Name,
			Quantity:    m.RequestedQty,
			UnitPrice:   m.Product.UnitPrice,
		})
	}
	o.EnsureValidity(time.Now())
	return o
}

func maxDiscount(values ...float64) float64 {
	best := 0.0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}
