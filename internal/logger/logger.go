// Package logger configures the process-wide slog logger: JSON on stdout, or
// OpenTelemetry log export when enabled, with sampling of warnings and errors.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug // -4
	LevelInfo    = slog.LevelInfo  // 0
	LevelWarning = slog.LevelWarn  // 4
	LevelError   = slog.LevelError // 8
	LevelFatal   = slog.Level(12)  // 12
)

// Config selects the log level, sampling and export.
type Config struct {
	Level       string `env:"LOG_LEVEL" envDefault:"INFO"`
	SampleRate  int    `env:"ERROR_SAMPLE_RATE" envDefault:"1"`
	OTELEnabled bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"labourcompliance"`
}

var (
	programLevel = new(slog.LevelVar)
	shutdownFunc func(context.Context) error // nil unless OTEL is in use

	// Suppressed counts warnings and errors dropped by sampling.
	Suppressed atomic.Int64
)

// Setup builds the logger described by cfg and installs it as the slog
// default. An OTEL setup failure falls back to JSON on stdout.
func Setup(cfg Config) *slog.Logger {
	return SetupTo(cfg, os.Stdout)
}

// SetupTo is Setup with JSON output written to w. Command-line tools pass
// os.Stderr so their stdout stays clean.
func SetupTo(cfg Config, w io.Writer) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	programLevel.Set(level)

	var handler slog.Handler
	if cfg.OTELEnabled {
		h, shutdown, err := otelHandler(context.Background(), cfg.ServiceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
		} else {
			handler = h
			shutdownFunc = shutdown
		}
	}
	if handler == nil {
		handler = jsonHandler(w)
	}

	l := slog.New(newSamplingHandler(handler, cfg.SampleRate))
	slog.SetDefault(l)
	return l
}

func jsonHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: programLevel})
}

// otelHandler bridges slog to an OTLP gRPC log exporter.
func otelHandler(ctx context.Context, serviceName string) (slog.Handler, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	h := &levelHandler{
		level:   programLevel,
		handler: otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)),
	}
	return h, provider.Shutdown, nil
}

// levelHandler wraps a handler to filter by level
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// samplingHandler passes 1 in rate warnings and errors. Fatal records and
// anything below WARN always pass.
type samplingHandler struct {
	rate    int
	handler slog.Handler
	sample  func(n int) bool
}

func newSamplingHandler(h slog.Handler, rate int) *samplingHandler {
	return &samplingHandler{
		rate:    rate,
		handler: h,
		sample:  func(n int) bool { return rand.Intn(n) == 0 },
	}
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.rate > 1 && r.Level >= LevelWarning && r.Level < LevelFatal && !h.sample(h.rate) {
		Suppressed.Add(1)
		return nil
	}
	return h.handler.Handle(ctx, r)
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{rate: h.rate, handler: h.handler.WithAttrs(attrs), sample: h.sample}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{rate: h.rate, handler: h.handler.WithGroup(name), sample: h.sample}
}

// Shutdown flushes the OTEL exporter, if any.
// Call this during application shutdown
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a string level name to slog.Level
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

// Fatal logs at FATAL, flushes any exporter and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}
