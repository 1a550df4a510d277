package rest

import (
	"go.uber.org/zap"

	"offerflow/internal/config"
	"offerflow/internal/erp"
)

func NewAdapter(cfg config.Config, searcher SearcherSource, log *zap.Logger) (*erp.Adapter, *ProductService) {
	client := NewClient(cfg.ERPBaseURL, cfg.ERPToken, cfg.ERPRateLimitRPS, cfg.ERPTimeoutMs, log)
	products := NewProductService(client, searcher)
	return &erp.Adapter{
		Customers: NewCustomerService(client),
		Persons:   NewPersonService(client),
		Products:  products,
		Offers:    NewOfferService(client),
		Pricing:   NewPricingService(client, true),
	}, products
}
