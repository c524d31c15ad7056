package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogStreamer wraps zap with the field discipline used across the service:
// every entry carries a trace ID, the emitting layer and a free-form field
// map alongside the message.
type LogStreamer struct {
	zl          *zap.Logger
	service     string
	environment string
}

func NewLogStreamer(service, environment string) *LogStreamer {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if environment == "development" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	zl := zap.New(core).With(
		zap.String("service", service),
		zap.String("environment", environment),
	)
	return &LogStreamer{zl: zl, service: service, environment: environment}
}

// Log emits one structured entry. traceID ties together the entries of a
// single operation; layer marks the code layer (SERVICE, REPOSITORY, MAIN).
func (s *LogStreamer) Log(level zapcore.Level, traceID, message string, fields map[string]any, layer string, err error) {
	zfields := make([]zap.Field, 0, len(fields)+3)
	zfields = append(zfields, zap.String("traceId", traceID), zap.String("layer", layer))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	if err != nil {
		zfields = append(zfields, zap.Error(err))
	}

	switch level {
	case zapcore.DebugLevel:
		s.zl.Debug(message, zfields...)
	case zapcore.WarnLevel:
		s.zl.Warn(message, zfields...)
	case zapcore.ErrorLevel:
		s.zl.Error(message, zfields...)
	case zapcore.FatalLevel:
		s.zl.Fatal(message, zfields...)
	default:
		s.zl.Info(message, zfields...)
	}
}

func (s *LogStreamer) Sync() {
	_ = s.zl.Sync()
}
