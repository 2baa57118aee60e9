// Package logging builds the shared zap logger for the pacer service.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger selected by the logging.development config
// flag. Development mode uses the colored console encoder at debug level;
// production emits JSON at info level. Production sampling is disabled: the
// progress hub already rate-limits its backpressure warnings, and sampling
// on top of that would drop the counts those warnings carry.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("pacer"), nil
}
