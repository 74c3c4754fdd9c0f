package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/radiology-api/internal/config"
)

type Service interface {
	SendPasswordReset(ctx context.Context, to string, token string) error
	SendWelcome(ctx context.Context, to string, name string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.EmailConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendPasswordReset(_ context.Context, to string, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset token: %s\n\n"+
			"The token expires in one hour. If you did not request this, ignore this message.",
		token,
	)
	return s.send(to, "Password reset request", body)
}

func (s *smtpService) SendWelcome(_ context.Context, to string, name string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour account has been created. You can now sign in.", name)
	return s.send(to, "Welcome", body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
