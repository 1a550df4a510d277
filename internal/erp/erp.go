package erp

import (
	"context"

	"offerflow/internal"
)

type CustomerLookup interface {
	FindByName(ctx context.Context, name string) (*internal.Customer, error)
	FindByNumber(ctx context.Context, number string) (*internal.Customer, error)
	Search(ctx context.Context, query string, limit int) ([]internal.Customer, error)
	PaymentTerms(ctx context.Context, customerNumber string) (string, error)
	InvoicingDetails(ctx context.Context, customerNumber string) (*InvoicingDetails, error)
	Validate(ctx context.Context, customer *internal.Customer) error
}

type PersonLookup interface {
	FindByEmail(ctx context.Context, email string) (*internal.Person, error)
	FindByNumber(ctx context.Context, number string) (*internal.Person, error)
	Search(ctx context.Context, query string, limit int) ([]internal.Person, error)
}

type ProductLookup interface {
	FindByCode(ctx context.Context, code string) (*internal.Product, error)
	Search(ctx context.Context, query string, limit int) ([]internal.Product, error)
	ListGroup(ctx context.Context, groupCode int) ([]internal.Product, error)
	CheckAvailability(ctx context.Context, code string, qty float64) (*Availability, error)

	LookupCodes(ctx context.Context, codes []string) (found []internal.CatalogRow, missing []string, err error)

	WildcardSearch(ctx context.Context, pattern string) ([]internal.CatalogRow, error)
}

type OfferRepository interface {
	Create(ctx context.Context, customerNumber string) (string, error)
	Get(ctx context.Context, number string) (*OfferRecord, error)
	Update(ctx context.Context, record *OfferRecord) error
	AppendLine(ctx context.Context, number string, line internal.OfferLine) error
	Verify(ctx context.Context, number string) (*VerifyResult, error)
	Delete(ctx context.Context, number string) error
}

type PricingService interface {
	PriceOffer(ctx context.Context, offer *internal.Offer) (*OfferPricing, error)
	PriceLine(ctx context.Context, customerNumber string, line internal.OfferLine) (*LinePricing, error)
	CustomerDiscount(ctx context.Context, customerNumber string) (float64, error)
	CustomerGroupDiscount(ctx context.Context, customerNumber string) (float64, error)
	CatalogGroupDiscount(ctx context.Context, customerNumber string, groupCode int) (float64, error)
	HistoricalPrice(ctx context.Context, customerNumber, productCode string) (*float64, error)
	SupportsDiscountOptimization() bool
}

type Adapter struct {
	Customers CustomerLookup
	Persons   PersonLookup
	Products  ProductLookup
	Offers    OfferRepository
	Pricing   PricingService
}

type InvoicingDetails struct {
	Email     string `json:"email"`
	Address   string `json:"address"`
	Reference string `json:"reference"`
}

type Availability struct {
	Code      string  `json:"code"`
	Available float64 `json:"available"`
	Unit      string  `json:"unit"`
}

// The vendor owns the record shape; callers overlay domain fields onto Fields.
type OfferRecord struct {
	Number string         `json:"number"`
	Fields map[string]any `json:"fields"`
}

type VerifyResult struct {
	Exists    bool    `json:"exists"`
	HasLines  bool    `json:"hasLines"`
	LineCount int     `json:"lineCount"`
	NetTotal  float64 `json:"netTotal"`
}

func (v VerifyResult) OK() bool {
	return v.Exists && v.HasLines && v.NetTotal != 0
}

type LinePricing struct {
	Position    int     `json:"position"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPct"`
	VATRate     float64 `json:"vatRate"`
}

type OfferPricing struct {
	Lines    []LinePricing `json:"lines"`
	NetTotal float64       `json:"netTotal"`
}
