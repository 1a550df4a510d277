package internal

import "time"

type Customer struct {
	ID             string         `json:"id"`
	Number         string         `json:"number"`
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	PostalCode     string         `json:"postalCode"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	CreditAllowed  bool           `json:"creditAllowed"`
	ResponsibleRef string         `json:"responsibleRef"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type Person struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

type Product struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Unit        string         `json:"unit"`
	GroupCode   int            `json:"groupCode"`
	ListPrice   float64        `json:"listPrice"`
	UnitPrice   float64        `json:"unitPrice"`
	InStock     *float64       `json:"inStock,omitempty"`
	Active      bool           `json:"active"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type MatchMethod string

const (
	MatchExact    MatchMethod = "exact"
	MatchWildcard MatchMethod = "wildcard"
	MatchSemantic MatchMethod = "semantic"
	MatchFallback MatchMethod = "fallback"
)

type ProductMatch struct {
	RequestedTerm string         `json:"requestedTerm"`
	RequestedQty  float64        `json:"requestedQty"`
	Unit          *string        `json:"unit,omitempty"`
	Product       *Product       `json:"product"`
	Confidence    int            `json:"confidence"`
	Method        MatchMethod    `json:"method"`
	Detail        map[string]any `json:"detail,omitempty"`
}

func (m ProductMatch) Resolved() bool { return m.Product != nil }

type OfferStatus string

const (
	OfferDraft    OfferStatus = "draft"
	OfferSent     OfferStatus = "sent"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type OfferLine struct {
	Position    int     `json:"position"`
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPct"`
	NetPrice    float64 `json:"netPrice"`
	LineTotal   float64 `json:"lineTotal"`
	VATRate     float64 `json:"vatRate"`
	VATAmount   float64 `json:"vatAmount"`
}

type Offer struct {
	Number         string      `json:"number"`
	CustomerID     string      `json:"customerId"`
	CustomerNumber string      `json:"customerNumber"`
	Date           time.Time   `json:"date"`
	ValidUntil     time.Time   `json:"validUntil"`
	Reference      string      `json:"reference"`
	YourReference  string      `json:"yourReference"`
	DeliveryTerms  string      `json:"deliveryTerms"`
	PaymentTerms   string      `json:"paymentTerms"`
	Notes          string      `json:"notes"`
	ResponsibleRef string      `json:"responsibleRef"`
	Lines          []OfferLine `json:"lines"`
	NetTotal       float64     `json:"netTotal"`
	VATTotal       float64     `json:"vatTotal"`
	GrossTotal     float64     `json:"grossTotal"`
	Status         OfferStatus `json:"status"`
}

type PendingStatus string

const (
	PendingReview     PendingStatus = "pending"
	PendingProcessing PendingStatus = "processing"
	PendingSent       PendingStatus = "sent"
	PendingFailed     PendingStatus = "failed"
)

type PendingOffer struct {
	ID            string        `json:"id"`
	OfferNumber   string        `json:"offer_number"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	CreatedAt     time.Time     `json:"created_at"`
	Status        PendingStatus `json:"status"`
	TotalAmount   float64       `json:"total_amount"`
	Lines         []OfferLine   `json:"lines"`
	Warnings      []string      `json:"warnings,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
}

type Attachment struct {
	FileName string
	Content  []byte
	MimeType string
}

type InboundMessage struct {
	Provider    string
	ProviderID  string
	Sender      string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []Attachment
	ReceivedAt  time.Time
}

type ItemSource string

const (
	SourceBodyText  ItemSource = "body_text"
	SourceHTMLTable ItemSource = "html_table"
	SourceXLSX      ItemSource = "xlsx"
	SourcePDF       ItemSource = "pdf"
)

type ExtractionItem struct {
	LineNo     int
	Source     ItemSource
	RawLine    string
	NameOrCode *string
	Qty        *float64
	Unit       *string
	Meta       map[string]any
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type MessageRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type CatalogRow struct {
	Code      string
	GroupCode int
	Columns   map[string]string
	Priority  bool
}
