package logger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// QueryHook logs bun queries. Successful queries are logged at debug level,
// failures at warn. sql.ErrNoRows is not treated as a failure.
type QueryHook struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook that logs through base, falling back to the
// request logger stored in the query context when there is one.
func NewQueryHook(base *zap.Logger, slowThreshold time.Duration) *QueryHook {
	if base == nil {
		base = zap.NewNop()
	}
	return &QueryHook{logger: base, slowThreshold: slowThreshold}
}

// BeforeQuery implements bun.QueryHook.
func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	l := h.logger
	if ctxLogger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		l = ctxLogger
	}

	elapsed := time.Since(event.StartTime)
	fields := []zap.Field{
		zap.String("query", event.Query),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		l.Warn("db_query_failed", append(fields, zap.Error(event.Err))...)
	case h.slowThreshold > 0 && elapsed >= h.slowThreshold:
		l.Warn("db_query_slow", fields...)
	default:
		l.Debug("db_query", fields...)
	}
}
