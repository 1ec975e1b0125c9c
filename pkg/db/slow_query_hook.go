package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type queryStartKey struct{}

type queryStart struct {
	sql   string
	begin time.Time
}

// SlowQueryTracer logs queries that exceed a configured threshold.
type SlowQueryTracer struct {
	logger    *zap.Logger
	threshold time.Duration
}

func NewSlowQueryTracer(logger *zap.Logger, threshold time.Duration) *SlowQueryTracer {
	return &SlowQueryTracer{logger: logger, threshold: threshold}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, begin: time.Now()})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.begin)
	if elapsed >= t.threshold {
		t.logger.Warn("slow query",
			zap.String("sql", start.sql),
			zap.Duration("elapsed", elapsed),
			zap.Error(data.Err))
	}
}
