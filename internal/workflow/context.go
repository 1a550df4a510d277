package workflow

import (
	"time"

	"github.com/google/uuid"

	"offerflow/internal"
	"offerflow/internal/erp"
	"offerflow/internal/offer"
)

type Context struct {
	TraceID   string
	StartedAt time.Time
	Step      Step

	Message *internal.InboundMessage
	Company string

	Customer     *internal.Customer
	Salesperson  *internal.Person
	PaymentTerms string

	Items   []internal.ExtractionItem
	Matches []internal.ProductMatch

	Pricing *erp.OfferPricing
	Offer   *internal.Offer

	CreateResult *offer.CreateResult
	Verified     *erp.VerifyResult

	PendingID string
	Warnings  []string
	Errors    []string
}

func NewContext(msg *internal.InboundMessage, now time.Time) *Context {
	return &Context{
		TraceID:   uuid.NewString(),
		StartedAt: now,
		Step:      StepParseMessage,
		Message:   msg,
	}
}

func (c *Context) AddWarning(w string) { c.Warnings = append(c.Warnings, w) }

func (c *Context) AddError(e string) { c.Errors = append(c.Errors, e) }

func (c *Context) OfferNumber() string {
	if c.CreateResult == nil {
		return ""
	}
	return c.CreateResult.Number
}

func (c *Context) ResolvedMatches() int {
	n := 0
	for _, m := range c.Matches {
		if m.Resolved() {
			n++
		}
	}
	return n
}
