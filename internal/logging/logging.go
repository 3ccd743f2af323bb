package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eugenenazirov/whisperx-api/internal/config"
)

// Named loggers whose warnings are dropped when warning filtering is enabled.
var noisyLoggers = []string{"media", "storage.migrate"}

// New creates a structured logger from the logging settings: console output for
// the "text" format, JSON otherwise, optionally teed into a rotating file.
func New(cfg config.LoggingSettings) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.StacktraceKey = "stacktrace"

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}))
	}

	var core zapcore.Core = zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	if cfg.FilterWarnings {
		core = FilterWarnings(core, noisyLoggers...)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel maps the conventional severity names (DEBUG, INFO, WARNING, ERROR,
// CRITICAL) onto zap levels. CRITICAL is dpanic, the highest level the service
// writes without exiting. An empty name means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL":
		return zapcore.DPanicLevel, nil
	case "FATAL":
		return zapcore.FatalLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// FilterWarnings drops warn-level entries written by the named loggers (and their
// children). Other levels pass through.
func FilterWarnings(core zapcore.Core, names ...string) zapcore.Core {
	return &warningFilter{Core: core, names: names}
}

type warningFilter struct {
	zapcore.Core
	names []string
}

func (f *warningFilter) With(fields []zapcore.Field) zapcore.Core {
	return &warningFilter{Core: f.Core.With(fields), names: f.names}
}

func (f *warningFilter) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level == zapcore.WarnLevel && f.muted(entry.LoggerName) {
		return checked
	}
	return f.Core.Check(entry, checked)
}

func (f *warningFilter) muted(logger string) bool {
	for _, name := range f.names {
		if logger == name || strings.HasPrefix(logger, name+".") {
			return true
		}
	}
	return false
}
