package logger

import (
	"go.uber.org/zap"
)

// New builds the application logger. Debug selects the development
// console encoder at debug level, otherwise production JSON at info.
func New(debug bool) (*zap.SugaredLogger, error) {
	var z *zap.Logger
	var err error
	if debug {
		cfg := zap.NewDevelopmentConfig()
		z, err = cfg.Build()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

// Nop returns a logger that discards everything, for tests and tools
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
