// Package mail delivers outbound notification email. The Mailer contract is
// deliberately tolerant: an unconfigured mailer reports failure instead of
// erroring so callers can surface a delivery-unavailable condition without
// special cases.
package mail

import (
	"context"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// Mailer delivers one message. A false return means the message was not
// handed to the transport, whether because delivery is unconfigured or
// because the send failed; err carries the detail in the latter case.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, textBody, htmlBody string) (bool, error)
}

// SMTPMailer sends through a single SMTP endpoint.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer builds the SMTP client up front; configuration problems
// surface at startup, not on the first send.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(username),
		gomail.WithPassword(password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{client: client, from: from}, nil
}

func (m *SMTPMailer) Deliver(ctx context.Context, to, subject, textBody, htmlBody string) (bool, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return false, err
	}
	if err := msg.To(to); err != nil {
		return false, err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

// Disabled is the null mailer used when EMAIL_USER/EMAIL_PASS are unset.
type Disabled struct{}

func (Disabled) Deliver(_ context.Context, to, subject, _, _ string) (bool, error) {
	slog.Warn("email not configured, message dropped", "to", to, "subject", subject)
	return false, nil
}
