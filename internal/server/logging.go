package server

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-print"

	"github.com/hireloop/portal-auth/activitymap"
)

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "portal-auth")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// auditWriter logs audit records on the "audit" channel
func auditWriter(logger *slog.Logger) func(context.Context, activitymap.Record) error {
	audit := logger.With("channel", "audit")
	return func(ctx context.Context, r activitymap.Record) error {
		args := []any{
			"action", r.Action,
			"outcome", r.Outcome,
			"actor_id", r.ActorID,
			"at", r.At,
		}
		if r.ActorRole != "" {
			args = append(args, "actor_role", r.ActorRole)
		}
		if r.Tenant != "" {
			args = append(args, "tenant", r.Tenant)
		}
		if r.Subject != "" {
			args = append(args, "subject", r.Subject)
		}
		if len(r.Changes) > 0 {
			args = append(args, "changes", print.MaybePrettyJSON(r.Changes))
		}
		audit.InfoContext(ctx, "audit", args...)
		return nil
	}
}
