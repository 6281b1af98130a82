package logger

import (
	"crm-workflow/internal/config"
	"crm-workflow/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the zap logger; with LogToDB set, entries are also copied to Mongo
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if !cfg.LogToDB || mongodb == nil {
		return baseLogger, nil
	}

	// Replace the core with a tee that sends to both console and DB
	dbWriter := NewDBLogWriter(mongodb, cfg)
	finalCore := NewDBCore(baseLogger.Core(), dbWriter)

	return zap.New(finalCore, zap.AddCaller()), nil
}
