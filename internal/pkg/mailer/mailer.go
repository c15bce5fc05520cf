package mailer

import "context"

// Service sends transactional email. A nil Service disables mail.
type Service interface {
	Send(ctx context.Context, e Email) error
}

type Email struct {
	FromName string
	From     string

	To []string

	Subject string

	TextBody string
	HTMLBody string
}
