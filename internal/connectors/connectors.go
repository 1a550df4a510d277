package connectors

import (
	"bytes"
	"context"

	"github.com/jhillyerd/enmime"

	"offerflow/internal"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
	MarkConsumed(ctx context.Context, messageID string) error
}

type MailSender interface {
	SendMail(ctx context.Context, to, subject, body string, attachments []internal.Attachment) error
}

func BuildMIME(from, to, subject, body string, attachments []internal.Attachment) ([]byte, error) {
	b := enmime.Builder().
		From("", from).
		To("", to).
		Subject(subject).
		Text([]byte(body))
	for _, att := range attachments {
		b = b.AddAttachment(att.Content, att.MimeType, att.FileName)
	}

	part, err := b.Build()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
