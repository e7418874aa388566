// Package mail delivers rendered emails over SMTP.
package mail

import (
	"context"

	"github.com/go-faster/errors"
	"gopkg.in/gomail.v2"

	"github.com/glowmart/storefront/internal/domain/notify"
	"github.com/glowmart/storefront/internal/domain/settings"
)

// ErrDisabled is returned when email delivery is switched off in settings.
var ErrDisabled = errors.New("email delivery disabled")

var _ notify.Mailer = (*Sender)(nil)

// Sender implements notify.Mailer over SMTP. Credentials are resolved
// from settings on every send so rotated passwords take effect without a
// restart.
type Sender struct {
	settings settings.Provider
}

// NewSender creates a Sender backed by the given settings provider.
func NewSender(provider settings.Provider) *Sender {
	return &Sender{settings: provider}
}

// Send delivers msg through the configured SMTP relay.
func (s *Sender) Send(ctx context.Context, msg *notify.Message) error {
	cfg, err := s.settings.Email(ctx)
	if err != nil {
		return errors.Wrap(err, "load email settings")
	}
	if !cfg.Enabled {
		return ErrDisabled
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(cfg.From, cfg.FromName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}
