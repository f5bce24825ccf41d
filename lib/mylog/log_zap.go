package mylog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MarcGrol/marketplace/lib/mycontext"
)

var (
	rootOnce   sync.Once
	rootLogger *zap.Logger
)

func init() {
	New = newZapLogger
}

func root() *zap.Logger {
	rootOnce.Do(func() {
		var cfg zap.Config
		if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
			// Cloud Logging parses the severity and message keys from stdout
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.LevelKey = "severity"
			cfg.EncoderConfig.MessageKey = "message"
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
			cfg.OutputPaths = []string{"stdout"}
		} else {
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "timestamp"

		l, err := cfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
			l = zap.NewNop()
		}
		rootLogger = l
	})
	return rootLogger
}

// Sync flushes buffered log entries of the shared root logger.
func Sync() {
	if rootLogger != nil {
		_ = rootLogger.Sync()
	}
}

type zapLogger struct {
	componentName string
	logger        *zap.Logger
}

func newZapLogger(componentName string) Logger {
	return NewFromZap(componentName, root())
}

// NewFromZap lets tests observe log output through their own zap core.
func NewFromZap(componentName string, logger *zap.Logger) Logger {
	return zapLogger{
		componentName: componentName,
		logger:        logger.With(zap.String("component", componentName)),
	}
}

func (l zapLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	fields := make([]zap.Field, 0, 2)
	if traceLabel != "" {
		fields = append(fields, zap.String("aggregate", traceLabel))
	}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		fields = append(fields, zap.String("logging.googleapis.com/trace", trace))
	}

	msg := fmt.Sprintf(format, a...)
	switch severity {
	case SeverityDebug:
		l.logger.Debug(msg, fields...)
	case SeverityWarn:
		l.logger.Warn(msg, fields...)
	case SeverityError:
		l.logger.Error(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}
