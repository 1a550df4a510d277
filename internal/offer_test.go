package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTotalsIdempotent(t *testing.T) {
	o := &Offer{}
	o.AddLine(OfferLine{ProductCode: "P-1", Quantity: 3, UnitPrice: 100, DiscountPct: 10, VATRate: 25})
	o.AddLine(OfferLine{ProductCode: "P-2", Quantity: 1.5, UnitPrice: 19.99, VATRate: 25})

	o.CalculateTotals()
	first := *o
	o.CalculateTotals()

	assert.Equal(t, first.NetTotal, o.NetTotal)
	assert.Equal(t, first.VATTotal, o.VATTotal)
	assert.Equal(t, first.GrossTotal, o.GrossTotal)
	assert.Equal(t, first.Lines, o.Lines)
}

func TestCalculateTotalsValues(t *testing.T) {
	o := &Offer{}
	o.AddLine(OfferLine{ProductCode: "P-1", Quantity: 2, UnitPrice: 100, DiscountPct: 50, VATRate: 25})
	o.CalculateTotals()

	require.Len(t, o.Lines, 1)
	assert.Equal(t, 50.0, o.Lines[0].NetPrice)
	assert.Equal(t, 100.0, o.Lines[0].LineTotal)
	assert.Equal(t, 25.0, o.Lines[0].VATAmount)
	assert.Equal(t, 100.0, o.NetTotal)
	assert.Equal(t, 25.0, o.VATTotal)
	assert.Equal(t, 125.0, o.GrossTotal)
}

func TestAddLineAssignsPositions(t *testing.T) {
	o := &Offer{}
	o.AddLine(OfferLine{ProductCode: "A"})
	o.AddLine(OfferLine{ProductCode: "B"})
	o.AddLine(OfferLine{ProductCode: "C"})

	for i, line := range o.Lines {
		assert.Equal(t, i+1, line.Position)
	}
}

func TestEnsureValidityDefaultsTo30Days(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o := &Offer{}
	o.EnsureValidity(now)
	assert.Equal(t, now, o.Date)
	assert.Equal(t, now.AddDate(0, 0, 30), o.ValidUntil)

	set := &Offer{Date: now, ValidUntil: now.AddDate(0, 0, 10)}
	set.EnsureValidity(now.AddDate(0, 1, 0))
	assert.Equal(t, now.AddDate(0, 0, 10), set.ValidUntil)
}
