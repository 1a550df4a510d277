package connectors

import (
	"context"
	"fmt"
	"net/smtp"

	"offerflow/internal"
	"offerflow/internal/config"
)

type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

func NewSMTPSender(cfg config.Config) (*SMTPSender, error) {
	if err := cfg.Require("SMTP_HOST", cfg.SMTPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("MAIL_FROM", cfg.MailFrom); err != nil {
		return nil, err
	}

	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}, nil
}

func (s *SMTPSender) SendMail(ctx context.Context, to, subject, body string, attachments []internal.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := BuildMIME(s.from, to, subject, body, attachments)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{to}, raw)
}
