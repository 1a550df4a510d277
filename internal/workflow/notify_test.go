package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerflow/internal"
)

type fakeSender struct {
	err  error
	to   string
	subj string
	body string
	atts []internal.Attachment
}

func (f *fakeSender) SendMail(ctx context.Context, to, subject, body string, attachments []internal.Attachment) error {
	if f.err != nil {
		return f.err
	}
	f.to = to
	f.subj = subject
	f.body = body
	f.atts = attachments
	return nil
}

func notifyContext() *Context {
	wc := NewContext(&internal.InboundMessage{
		Provider:   "imap",
		ProviderID: "<m1@example>",
		Sender:     "Anna Berg <anna@nordicpower.example>",
		Subject:    "Quote request",
	}, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	wc.Offer = &internal.Offer{
		Number: "OF-1001",
		Lines: []internal.OfferLine{
			{Position: 10, ProductCode: "CBL-3X25", Quantity: 100, Unit: "m"},
		},
		NetTotal:   1250,
		VATTotal:   312.5,
		GrossTotal: 1562.5,
	}
	return wc
}

func TestConfirmationMailer(t *testing.T) {
	sender := &fakeSender{}
	wc := notifyContext()

	require.NoError(t, NewConfirmationMailer(sender).SendConfirmation(context.Background(), wc))
	assert.Equal(t, "anna@nordicpower.example", sender.to)
	assert.Equal(t, "Re: Quote request", sender.subj)
	assert.Contains(t, sender.body, "OF-1001")
	assert.Empty(t, sender.atts)
}

func TestConfirmationMailerRequiresSenderAddress(t *testing.T) {
	wc := notifyContext()
	wc.Message.Sender = ""

	err := NewConfirmationMailer(&fakeSender{}).SendConfirmation(context.Background(), wc)
	assert.Error(t, err)
}

func TestOfferMailerAttachesRendition(t *testing.T) {
	sender := &fakeSender{}
	wc := notifyContext()
	record := &internal.PendingOffer{
		ID:            "p-1",
		OfferNumber:   "OF-1001",
		CustomerEmail: "anna@nordicpower.example",
	}

	require.NoError(t, NewOfferMailer(sender).DispatchOffer(context.Background(), record, wc))
	assert.Equal(t, "anna@nordicpower.example", sender.to)
	assert.Contains(t, sender.body, "OF-1001")
	require.Len(t, sender.atts, 1)
	assert.Equal(t, "offer_OF-1001_p-1.xlsx", sender.atts[0].FileName)
	assert.NotEmpty(t, sender.atts[0].Content)
}

func TestOfferMailerRequiresCustomerEmail(t *testing.T) {
	wc := notifyContext()
	record := &internal.PendingOffer{ID: "p-1", OfferNumber: "OF-1001"}

	err := NewOfferMailer(&fakeSender{}).DispatchOffer(context.Background(), record, wc)
	assert.Error(t, err)
}

func TestOfferMailerPropagatesSendFailure(t *testing.T) {
	wc := notifyContext()
	record := &internal.PendingOffer{ID: "p-1", OfferNumber: "OF-1001", CustomerEmail: "anna@nordicpower.example"}

	err := NewOfferMailer(&fakeSender{err: errors.New("smtp down")}).DispatchOffer(context.Background(), record, wc)
	assert.ErrorContains(t, err, "smtp down")
}
