// File: facade/logger.go
// Author: momentics <momentics@gmail.com>

package facade

import (
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/control"
	"go.uber.org/zap"
)

// NewLogger builds a zap logger from cfg. The returned level can be
// changed while the logger is in use.
func NewLogger(cfg control.Config) (*zap.Logger, zap.AtomicLevel, error) {
	zc := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, zap.AtomicLevel{}, api.Wrap(api.ErrCodeInvalidValue, "log_level", err)
	}
	zc.Level = lvl
	log, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, api.Wrap(api.ErrCodeInvalidValue, "logger", err)
	}
	return log.Named("hioload-aio"), lvl, nil
}
