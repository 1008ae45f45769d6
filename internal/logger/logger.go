package logger

import (
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new structured logger
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// WithActor adds the acting user to logger. A nil actor is logged as system.
func WithActor(logger *zap.Logger, actorID *uint) *zap.Logger {
	if actorID == nil {
		return logger.With(zap.String("actor", "system"))
	}
	return logger.With(zap.Uint("actor_id", *actorID))
}

// WithOperation adds the operation name and the batch id shared by its activities
func WithOperation(logger *zap.Logger, op string, batchID uuid.UUID) *zap.Logger {
	return logger.With(
		zap.String("operation", op),
		zap.String("batch_id", batchID.String()),
	)
}
