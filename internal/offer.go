package internal

import (
	"math"
	"time"
)

const DefaultValidityDays = 30

func (o *Offer) AddLine(line OfferLine) {
	line.Position = len(o.Lines) + 1
	o.Lines = append(o.Lines, line)
}

func (o *Offer) CalculateTotals() {
	var net, vat float64
	for i := range o.Lines {
		l := &o.Lines[i]
		l.NetPrice = round2(l.UnitPrice * (1 - l.DiscountPct/100))
		l.LineTotal = round2(l.NetPrice * l.Quantity)
		l.VATAmount = round2(l.LineTotal * l.VATRate / 100)
		net += l.LineTotal
		vat += l.VATAmount
	}
	o.NetTotal = round2(net)
	o.VATTotal = round2(vat)
	o.GrossTotal = round2(net + vat)
}

func (o *Offer) EnsureValidity(now time.Time) {
	if o.Date.IsZero() {
		o.Date = now
	}
	if o.ValidUntil.IsZero() {
		o.ValidUntil = o.Date.AddDate(0, 0, DefaultValidityDays)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
