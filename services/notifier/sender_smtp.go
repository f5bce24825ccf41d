package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	config SMTPConfig
}

func NewSMTPSender(config SMTPConfig) Sender {
	return &smtpSender{
		config: config,
	}
}

func (s *smtpSender) Send(c context.Context, receipt Receipt) error {
	body, err := renderReceipt(receipt)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	err = m.From(s.config.From)
	if err != nil {
		return fmt.Errorf("invalid sender address %s: %w", s.config.From, err)
	}
	err = m.To(receipt.ToAddress)
	if err != nil {
		return fmt.Errorf("invalid recipient address %s: %w", receipt.ToAddress, err)
	}
	m.Subject(receiptSubject)
	m.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	client, err := mail.NewClient(s.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("error creating mail client: %w", err)
	}

	err = client.DialAndSendWithContext(c, m)
	if err != nil {
		return fmt.Errorf("error sending receipt of order %s: %w", receipt.OrderUID, err)
	}

	return nil
}
