package env

import (
	"fmt"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds the production logger described by conf. Logs go to
// stderr; stdout is left for usage text.
func MakeLogger(conf *Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		return nil, fmt.Errorf("REGBRIDGE_LOG_LEVEL: %w", err)
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(level)
	logConfig.Encoding = conf.LogEncoding
	logConfig.OutputPaths = []string{"stderr"}

	return logConfig.Build()
}
