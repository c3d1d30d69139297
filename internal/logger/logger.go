// Package logger is the process-wide structured logger. Every call takes a
// context so trace ids and scoped fields (request_id, scenario_id) follow the work.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "scenario-advisor"

// runtime.Caller depth of the code calling a direct wrapper such as Info
const callerDepth = 2

var (
	// usable before Init so packages can log from tests
	base     = slog.Default()
	detailed bool
	tracing  bool
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string    // DEBUG, INFO, WARN, ERROR
	Format          string    // json or text
	DetailedLogging bool      // Enable detailed logs
	TracingEnabled  bool      // Enable OpenTelemetry tracing
	Output          io.Writer // defaults to os.Stderr
}

// Init configures logging from LOG_LEVEL, LOG_FORMAT, LOG_DETAILED and LOG_TRACING_ENABLED.
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           envOr("LOG_LEVEL", "INFO"),
		Format:          envOr("LOG_FORMAT", "json"),
		DetailedLogging: envOr("LOG_DETAILED", "false") == "true",
		TracingEnabled:  envOr("LOG_TRACING_ENABLED", "false") == "true",
	}
}

func InitWithConfig(cfg LogConfig) error {
	detailed = cfg.DetailedLogging
	tracing = cfg.TracingEnabled

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: levelOf(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		base = slog.New(slog.NewJSONHandler(out, opts))
	} else {
		base = slog.New(slog.NewTextHandler(out, opts))
	}
	slog.SetDefault(base)

	if tracing {
		if err := startTracer(); err != nil {
			base.Warn("OpenTelemetry tracer unavailable, tracing disabled", "error", err)
			tracing = false
		}
	}
	return nil
}

// startTracer installs a stdout exporter as the global provider.
func startTracer() error {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return err
	}
	provider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(provider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

func levelOf(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func IsDebugEnabled() bool { return detailed }
func IsTracingEnabled() bool { return tracing }

type fieldsKey struct{}

// WithFields returns a context whose log lines all carry args (request_id, scenario_id, ...).
// Fields accumulate across nested calls.
func WithFields(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := fieldsFrom(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(append(merged, prev...), args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsFrom(ctx context.Context) []any {
	f, _ := ctx.Value(fieldsKey{}).([]any)
	return f
}

func Debug(ctx context.Context, msg string, args ...any) { debugAt(ctx, 0, msg, args) }
func Info(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelInfo, 0, msg, args) }
func Warn(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelWarn, 0, msg, args) }
func Error(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelError, 0, msg, args) }

// ErrorWithErr logs at error level and marks the current span failed.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	failAt(ctx, 0, msg, err, args)
}

// The Skip variants are for wrappers and middleware: skip extra frames so the
// reported source is the wrapper's caller.

func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	debugAt(ctx, skip, msg, args)
}

func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, skip, msg, args)
}

func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logAt(ctx, slog.LevelWarn, skip, msg, args)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	failAt(ctx, skip, msg, err, args)
}

func debugAt(ctx context.Context, skip int, msg string, args []any) {
	if detailed {
		logAt(ctx, slog.LevelDebug, skip+1, msg, args)
	}
}

func failAt(ctx context.Context, skip int, msg string, err error, args []any) {
	if err != nil {
		markFailed(trace.SpanFromContext(nonNil(ctx)), err)
	}
	logAt(ctx, slog.LevelError, skip+1, msg, append([]any{"error", err}, args...))
}

func markFailed(span trace.Span, err error) {
	if tracing && span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func nonNil(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// logAt writes one record. Order: trace ids, scoped fields, call args, source.
func logAt(ctx context.Context, level slog.Level, skip int, msg string, args []any) {
	ctx = nonNil(ctx)

	var all []any
	if tracing {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			all = append(all, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
		}
	}
	all = append(all, fieldsFrom(ctx)...)
	all = append(all, args...)

	if detailed {
		if pc, file, line, ok := runtime.Caller(callerDepth + skip); ok {
			name := ""
			if fn := runtime.FuncForPC(pc); fn != nil {
				name = fn.Name()
			}
			all = append(all, slog.Group("source",
				slog.String("function", name),
				slog.String("file", file),
				slog.Int("line", line)))
		}
	}

	base.Log(ctx, level, msg, all...)
}

// OperationTimer times one unit of work and owns its span.
type OperationTimer struct {
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation opens a span (when tracing) and returns a timer; use GetContext for child work.
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx = nonNil(ctx)
	ot := &OperationTimer{
		start:  time.Now(),
		fields: append([]any{"operation", operation}, fields...),
	}
	if tracing && tracer != nil {
		ctx, ot.span = tracer.Start(ctx, operation, trace.WithAttributes(attrs(fields)...))
	}
	ot.ctx = ctx
	debugAt(ctx, 0, "Operation started", ot.fields)
	return ot
}

func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

// End closes the span and logs the duration at debug level.
func (ot *OperationTimer) End(fields ...any) {
	elapsed := time.Since(ot.start)
	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
		ot.span.SetAttributes(attrs(fields)...)
		ot.span.SetStatus(codes.Ok, "")
		ot.span.End()
	}
	debugAt(ot.ctx, 0, "Operation completed", ot.summary(elapsed, fields))
}

// EndWithError closes the span as failed and always logs.
func (ot *OperationTimer) EndWithError(err error, fields ...any) {
	elapsed := time.Since(ot.start)
	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
		markFailed(ot.span, err)
		ot.span.End()
	}
	logAt(ot.ctx, slog.LevelError, 0, "Operation failed", append(ot.summary(elapsed, fields), "error", err))
}

func (ot *OperationTimer) summary(elapsed time.Duration, extra []any) []any {
	out := make([]any, 0, len(ot.fields)+len(extra)+2)
	out = append(out, ot.fields...)
	out = append(out, "duration_ms", elapsed.Milliseconds())
	return append(out, extra...)
}

// attrs converts key/value pairs to span attributes; unsupported values are skipped.
func attrs(fields []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			out = append(out, attribute.String(k, v))
		case int:
			out = append(out, attribute.Int(k, v))
		case int64:
			out = append(out, attribute.Int64(k, v))
		case float64:
			out = append(out, attribute.Float64(k, v))
		case bool:
			out = append(out, attribute.Bool(k, v))
		}
	}
	return out
}

// spanEvent adds a named event to the active span when tracing.
func spanEvent(ctx context.Context, name string, kv ...attribute.KeyValue) {
	if !tracing {
		return
	}
	if span := trace.SpanFromContext(nonNil(ctx)); span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(kv...))
	}
}

// Trade records an order outcome at info level, whatever the configured detail.
func Trade(ctx context.Context, symbol, quantity string, accepted bool, orderID string, fields ...any) {
	spanEvent(ctx, "order_submitted",
		attribute.String("symbol", symbol),
		attribute.String("quantity", quantity),
		attribute.Bool("accepted", accepted),
		attribute.String("order_id", orderID))

	args := append([]any{"type", "TRADE", "symbol", symbol, "quantity", quantity,
		"accepted", accepted, "order_id", orderID}, fields...)
	logAt(ctx, slog.LevelInfo, 0, "Order submitted", args)
}

// NewsCheck records a scenario news check; failures are warnings.
func NewsCheck(ctx context.Context, scenarioID string, items int, checkErr error, fields ...any) {
	spanEvent(ctx, "news_checked",
		attribute.String("scenario_id", scenarioID),
		attribute.Int("items", items),
		attribute.Bool("failed", checkErr != nil))

	args := append([]any{"type", "NEWS", "scenario_id", scenarioID, "items", items}, fields...)
	if checkErr != nil {
		logAt(ctx, slog.LevelWarn, 0, "News check failed", append(args, "error", checkErr))
		return
	}
	logAt(ctx, slog.LevelInfo, 0, "News checked", args)
}
