package config

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger builds the process logger: JSON in production, console otherwise.
func NewLogger(lc fx.Lifecycle, cfg *AppConfig) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", "sahaaya"))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stderr sync fails on some platforms; nothing useful to do about it
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
