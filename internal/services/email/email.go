// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"fmt"
	"strings"

	"github.com/ripplefund/ripple/internal/config"
	"github.com/wneessen/go-mail"
)

// Service sends transactional email over SMTP. Delivery failures are the
// caller's to log; nothing here retries.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendVerificationPin mails the pin a fresh account must echo back.
func (s *Service) SendVerificationPin(toEmail, pin string) error {
	subject := fmt.Sprintf("%s - Email Verification", s.cfg.FromName)
	body, err := render("verification_pin", map[string]any{
		"Pin":     pin,
		"Email":   toEmail,
		"BaseURL": s.baseURL,
	})
	if err != nil {
		return err
	}
	return s.send(toEmail, subject, body)
}

// SendPasswordReset mails one half of the magic-link pair.
func (s *Service) SendPasswordReset(toEmail, token string) error {
	subject := fmt.Sprintf("%s - Password recovery for user %s", s.cfg.FromName, toEmail)
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	body, err := render("reset_password", map[string]any{
		"Email":   toEmail,
		"Link":    link,
		"BaseURL": s.baseURL,
	})
	if err != nil {
		return err
	}
	return s.send(toEmail, subject, body)
}

// SendNewAccount mails a welcome notice after signup.
func (s *Service) SendNewAccount(toEmail string) error {
	subject := fmt.Sprintf("%s - New account for user %s", s.cfg.FromName, toEmail)
	body, err := render("new_account", map[string]any{
		"Email":   toEmail,
		"BaseURL": s.baseURL,
	})
	if err != nil {
		return err
	}
	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
