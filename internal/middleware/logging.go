package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a
// request context carry that request's ID, user and trace.
var Logger *slog.Logger

type logFieldsKey struct{}

// logFields are the per-request attributes attached to every record.
type logFields struct {
	requestID string
	traceID   string
	userID    uint
}

type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if f, ok := ctx.Value(logFieldsKey{}).(logFields); ok {
		if f.requestID != "" {
			r.AddAttrs(slog.String("request_id", f.requestID))
		}
		if f.traceID != "" {
			r.AddAttrs(slog.String("trace_id", f.traceID))
		}
		if f.userID != 0 {
			r.AddAttrs(slog.Uint64("user_id", uint64(f.userID)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func init() {
	opts := &slog.HandlerOptions{Level: logLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if os.Getenv("APP_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(&ctxHandler{handler})
}

// ContextMiddleware moves the request ID, trace ID and session user from
// Fiber locals into the user context. Register it after LoadSession.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f logFields
		f.requestID, _ = c.Locals("requestid").(string)
		f.traceID, _ = c.Locals("traceID").(string)
		f.userID, _ = c.Locals("userID").(uint)

		c.SetUserContext(context.WithValue(c.UserContext(), logFieldsKey{}, f))
		return c.Next()
	}
}

// StructuredLogger logs one record per request. Server errors log at error
// level, client errors at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}
