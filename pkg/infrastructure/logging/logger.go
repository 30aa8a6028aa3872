package logging

import (
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/infrastructure/config"
)

// New builds a zap logger: json selects the production encoder, anything else the
// development console encoder. Unknown levels keep the encoder's default.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	// CLI output goes to stdout; keep logs on stderr
	zapCfg.OutputPaths = []string{"stderr"}

	return zapCfg.Build()
}
