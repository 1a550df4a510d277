package intake

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"offerflow/internal"
)

func ParseMessage(provider, providerID string, raw []byte) (*internal.InboundMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &internal.InboundMessage{
		Provider:   provider,
		ProviderID: providerID,
		Sender:     env.GetHeader("From"),
		Subject:    env.GetHeader("Subject"),
		Body:       env.Text,
		HTMLBody:   env.HTML,
		ReceivedAt: time.Now().UTC(),
	}
	if date, err := env.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = date.UTC()
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		msg.Attachments = append(msg.Attachments, internal.Attachment{
			FileName: name,
			Content:  att.Content,
			MimeType: att.ContentType,
		})
	}
	return msg, nil
}

func SenderAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(sender))
}

func SenderName(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.TrimSpace(addr.Name)
	}
	return ""
}

func SenderDomain(sender string) string {
	addr := SenderAddress(sender)
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		return addr[at+1:]
	}
	return ""
}
