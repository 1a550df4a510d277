package workflow

import (
	"context"
	"fmt"

	"offerflow/internal"
	"offerflow/internal/intake"
	"offerflow/internal/offer"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MailSender interface {
	SendMail(ctx context.Context, to, subject, body string, attachments []internal.Attachment) error
}

type ConfirmationMailer struct {
	sender MailSender
}

func NewConfirmationMailer(sender MailSender) *ConfirmationMailer {
	return &ConfirmationMailer{sender: sender}
}

func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, wc *Context) error {
	to := intake.SenderAddress(wc.Message.Sender)
	if to == "" {
		return fmt.Errorf("no sender address to confirm to")
	}

	body := fmt.Sprintf(
		"Hello,\n\nThank you for your request. We have prepared offer %s with %d lines and will send it to you shortly.\n",
		wc.OfferNumber(), len(wc.Offer.Lines))
	return m.sender.SendMail(ctx, to, replySubject(wc.Message.Subject), body, nil)
}

type OfferMailer struct {
	sender MailSender
}

func NewOfferMailer(sender MailSender) *OfferMailer {
	return &OfferMailer{sender: sender}
}

func (m *OfferMailer) DispatchOffer(ctx context.Context, record *internal.PendingOffer, wc *Context) error {
	if record.CustomerEmail == "" {
		return fmt.Errorf("record %s has no customer email", record.ID)
	}
	if wc.Offer == nil {
		return fmt.Errorf("record %s has no offer to dispatch", record.ID)
	}

	content, err := offer.RenderXLSX(wc.Offer)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Hello,\n\nPlease find attached our offer %s.\n\nNet total: %.2f\nVAT: %.2f\nGross total: %.2f\n",
		wc.Offer.Number, wc.Offer.NetTotal, wc.Offer.VATTotal, wc.Offer.GrossTotal)
	attachments := []internal.Attachment{{
		FileName: offer.ExportFileName(*record),
		Content:  content,
		MimeType: xlsxMimeType,
	}}
	return m.sender.SendMail(ctx, record.CustomerEmail, replySubject(wc.Message.Subject), body, attachments)
}

func replySubject(subject string) string {
	if subject == "" {
		return "Your offer"
	}
	return "Re: " + subject
}
