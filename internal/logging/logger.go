package logging

import (
	"context"
	"io"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Service string
	Env     string
	Level   string
	Format  string // json or text
	Output  io.Writer
}

// New builds a logrus logger whose entries carry trace and request ids when
// they are logged WithContext.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if opts.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.AddHook(&contextHook{service: opts.Service, env: opts.Env})
	return logger
}

// Discard is a logger for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type contextHook struct {
	service string
	env     string
}

func (h *contextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *contextHook) Fire(entry *logrus.Entry) error {
	if h.service != "" {
		entry.Data["service"] = h.service
	}
	if h.env != "" {
		entry.Data["env"] = h.env
	}
	if entry.Context == nil {
		return nil
	}
	for k, v := range ContextFields(entry.Context) {
		entry.Data[k] = v
	}
	return nil
}

// ContextFields extracts correlation ids from ctx.
func ContextFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		fields["span_id"] = sc.SpanID().String()
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		fields["request_id"] = reqID
	}
	return fields
}
