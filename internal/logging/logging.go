// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects the log level and where entries go.
type Config struct {
	Level  string   `yaml:"level"`
	Output []string `yaml:"output"`
}

// New builds a development logger for env "dev" and a production logger
// otherwise. An empty Level keeps the preset's default; an empty Output
// keeps stderr.
func New(env string, cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if env == "dev" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		zc.Level = level
	}
	if len(cfg.Output) > 0 {
		zc.OutputPaths = cfg.Output
		zc.ErrorOutputPaths = cfg.Output
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return logger, nil
}
