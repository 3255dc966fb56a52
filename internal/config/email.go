package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrEmailDisabled = errors.New("email delivery is not configured")

type ResendConfig struct {
	APIKey string
	From   string
}

func NewResendConfig(cfg *AppConfig) *ResendConfig {
	return &ResendConfig{
		APIKey: cfg.ResendAPIKey,
		From:   cfg.FromEmail,
	}
}

// EmailService sends transactional mail through Resend. Without an API key
// and sender it stays disabled and every send returns ErrEmailDisabled.
type EmailService struct {
	Config *ResendConfig
	client *resend.Client
	logger *zap.Logger
}

func NewEmailService(lc fx.Lifecycle, config *ResendConfig, logger *zap.Logger) *EmailService {
	service := &EmailService{Config: config, logger: logger}
	if config.APIKey != "" && config.From != "" {
		service.client = resend.NewClient(config.APIKey)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("email service initialized", zap.Bool("enabled", service.Enabled()))
			return nil
		},
	})
	return service
}

func (e *EmailService) Enabled() bool {
	return e != nil && e.client != nil
}

func (e *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if !e.Enabled() {
		return ErrEmailDisabled
	}

	resp, err := e.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.Config.From,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Debug("email sent", zap.String("to", to), zap.String("id", resp.Id))
	return nil
}
