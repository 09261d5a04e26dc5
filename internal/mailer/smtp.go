package mailer

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/hbagheri/mailflow/internal/config"
	"github.com/hbagheri/mailflow/internal/util"
)

// SMTPTransmitter delivers through a single SMTP endpoint. SMTP does not hand
// back a provider id, so the transmitter assigns its own Message-ID and
// reports that.
type SMTPTransmitter struct {
	cfg        config.SMTPConfig
	fromDomain string
}

func NewSMTPTransmitter(cfg config.SMTPConfig) *SMTPTransmitter {
	domain := "localhost"
	if i := strings.IndexByte(cfg.From, '@'); i >= 0 {
		domain = cfg.From[i+1:]
	}
	return &SMTPTransmitter{cfg: cfg, fromDomain: domain}
}

func (t *SMTPTransmitter) Send(ctx context.Context, e Email) Result {
	msgID := util.MessageID(t.fromDomain)

	m := gomail.NewMsg()
	if err := m.From(t.cfg.From); err != nil {
		return Failed(fmt.Errorf("from address: %w", err))
	}
	if err := m.To(e.To); err != nil {
		return Failed(fmt.Errorf("recipient address: %w", err))
	}
	m.Subject(e.Subject)
	m.SetMessageIDWithValue(strings.Trim(msgID, "<>"))
	m.SetBodyString(gomail.TypeTextHTML, e.HTML)
	if e.Text != "" {
		m.AddAlternativeString(gomail.TypeTextPlain, e.Text)
	}

	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if t.cfg.UseTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}

	client, err := gomail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return Failed(fmt.Errorf("smtp client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Failed(fmt.Errorf("smtp send to %s: %w", e.To, err))
	}

	return Sent(msgID)
}
