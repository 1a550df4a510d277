package offer

import (
	"time"

	"offerflow/internal"
	"offerflow/internal/erp"
)

func Build(customer *internal.Customer, responsible *internal.Person, matches []internal.ProductMatch, pricing *erp.OfferPricing, defaultVATRate float64, now time.Time) *internal.Offer {
	o := &internal.Offer{
		CustomerID:     customer.ID,
		CustomerNumber: customer.Number,
		Status:         internal.OfferDraft,
	}
	if responsible != nil {
		o.ResponsibleRef = responsible.Number
	}

	priced := map[int]erp.LinePricing{}
	if pricing != nil {
		for _, lp := range pricing.Lines {
			priced[lp.Position] = lp
		}
	}

	for _, m := range matches {
		if !m.Resolved() {
			continue
		}

		line := internal.OfferLine{
			ProductCode: m.Product.Code,
			ProductName: m.Product.Name,
			Quantity:    m.RequestedQty,
			Unit:        m.Product.Unit,
			UnitPrice:   m.Product.UnitPrice,
			VATRate:     defaultVATRate,
		}
		if m.Unit != nil && *m.Unit != "" {
			line.Unit = *m.Unit
		}
		if lp, ok := priced[len(o.Lines)+1]; ok {
			line.UnitPrice = lp.UnitPrice
			line.DiscountPct = lp.DiscountPct
			if lp.VATRate > 0 {
				line.VATRate = lp.VATRate
			}
		}
		o.AddLine(line)
	}

	o.EnsureValidity(now)
	o.CalculateTotals()
	return o
}
