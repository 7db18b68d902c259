package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mailnight/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{
		Host:     "db",
		Port:     5432,
		User:     "mail",
		Password: "p@ss word",
		Name:     "mailnight",
	})
	assert.Equal(t, "postgres://mail:p%40ss%20word@db:5432/mailnight?sslmode=disable", dsn)

	dsn = DSN(config.DBConfig{Host: "db", Port: 5432, User: "u", Name: "n", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}

func TestSlowQueryTracerLogsOnlySlowQueries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), time.Nanosecond)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	time.Sleep(time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	entries := logs.FilterMessage("slow-query").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	}

	fast := NewSlowQueryTracer(zap.New(core), time.Hour)
	ctx = fast.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 2"})
	fast.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	assert.Len(t, logs.FilterMessage("slow-query").All(), 1)
}
