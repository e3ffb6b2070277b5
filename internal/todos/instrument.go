package todos

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_store_operations_total",
			Help: "Total number of todo store operations",
		},
		[]string{"op", "result"},
	)

	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_store_operation_duration_seconds",
			Help:    "Histogram of todo store operation durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(storeOpsTotal, storeOpDuration)
}

type instrumentedRepo struct {
	next   Repository
	logger *slog.Logger
	tracer trace.Tracer
}

// Instrument wraps next with a span, metrics and a debug log line per call.
// Errors from next are returned as they are.
func Instrument(next Repository, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumentedRepo{
		next:   next,
		logger: logger,
		tracer: otel.Tracer("todos/store"),
	}
}

func (r *instrumentedRepo) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := r.tracer.Start(ctx, "todos."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	dur := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	storeOpsTotal.WithLabelValues(op, result).Inc()
	storeOpDuration.WithLabelValues(op).Observe(dur.Seconds())

	logAttrs := []any{
		slog.String("op", op),
		slog.String("result", result),
		slog.Float64("duration_ms", float64(dur.Microseconds())/1000.0),
	}
	if err != nil {
		logAttrs = append(logAttrs, slog.String("error", err.Error()))
	}
	r.logger.DebugContext(ctx, "store_op", logAttrs...)
	return err
}

func (r *instrumentedRepo) Init(ctx context.Context) error {
	return r.observe(ctx, "init", r.next.Init)
}

func (r *instrumentedRepo) List(ctx context.Context) ([]Todo, error) {
	var out []Todo
	err := r.observe(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = r.next.List(ctx)
		return err
	})
	return out, err
}

func (r *instrumentedRepo) Get(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := r.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		t, err = r.next.Get(ctx, id)
		return err
	}, attribute.Int64("todo.id", id))
	return t, err
}

func (r *instrumentedRepo) Add(ctx context.Context, text string) (int64, error) {
	var id int64
	err := r.observe(ctx, "add", func(ctx context.Context) error {
		var err error
		id, err = r.next.Add(ctx, text)
		return err
	}, attribute.Int("todo.text_len", len(text)))
	return id, err
}

func (r *instrumentedRepo) Update(ctx context.Context, id int64, p Patch) error {
	return r.observe(ctx, "update", func(ctx context.Context) error {
		return r.next.Update(ctx, id, p)
	},
		attribute.Int64("todo.id", id),
		attribute.Bool("patch.text", p.Text != nil),
		attribute.Bool("patch.done", p.Done != nil),
	)
}

func (r *instrumentedRepo) Delete(ctx context.Context, id int64) error {
	return r.observe(ctx, "delete", func(ctx context.Context) error {
		return r.next.Delete(ctx, id)
	}, attribute.Int64("todo.id", id))
}

func (r *instrumentedRepo) Close() error { return r.next.Close() }
