package observability

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Log output formats understood by NewLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Timestamp bool   `mapstructure:"timestamp"`
	NoColor   bool   `mapstructure:"no_color"`
	Service   string `mapstructure:"service"`
}

// ApplyDefaults fills in zero values.
func (c *LoggerConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
}

// Validate checks the level and format.
func (c *LoggerConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole:
		return nil
	default:
		return errors.Newf("invalid log format %q", c.Format)
	}
}

// NewLogger builds a zerolog-backed Logger writing to w (stderr when nil).
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NewLogger(cfg LoggerConfig, w io.Writer) (Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	level, _ := zerolog.ParseLevel(cfg.Level)

	if strings.ToLower(cfg.Format) == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor}
	}

	zctx := zerolog.New(w).Level(level).With()
	if cfg.Timestamp {
		zctx = zctx.Timestamp()
	}
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}

	return NewZerologLogger(zctx.Logger()), nil
}

// NewZerologLogger adapts an existing zerolog.Logger.
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{log: zl}
}

type zerologLogger struct {
	log zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...Field) { emit(l.log.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...Field)  { emit(l.log.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...Field)  { emit(l.log.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...Field) { emit(l.log.Error(), msg, fields) }

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *zerologLogger) With(fields ...Field) Logger {
	zctx := l.log.With()
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			zctx = zctx.AnErr(f.Key, err)
			continue
		}
		zctx = zctx.Interface(f.Key, f.Value)
	}
	return &zerologLogger{log: zctx.Logger()}
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	// nil when the level is disabled
	if event == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			event = event.AnErr(f.Key, v)
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	event.Msg(msg)
}
