package logger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "test"} {
		l, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}

	_, err := New("staging")
	assert.Error(t, err)

	l, err := New("prod", "debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("prod", "loud")
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestQueryHook(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hook := NewQueryHook(zap.New(core), 50*time.Millisecond)
	ctx := context.Background()

	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now(), Err: sql.ErrNoRows})
	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 3", StartTime: time.Now(), Err: errors.New("boom")})
	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 4", StartTime: time.Now().Add(-time.Second)})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "db_query", entries[0].Message)
	assert.Equal(t, "db_query", entries[1].Message)
	assert.Equal(t, "db_query_failed", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "db_query_slow", entries[3].Message)
}

func TestQueryHook_UsesContextLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.DebugLevel)
	reqCore, reqLogs := observer.New(zapcore.DebugLevel)

	hook := NewQueryHook(zap.New(baseCore), 0)
	ctx := WithContext(context.Background(), zap.New(reqCore))
	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})

	assert.Equal(t, 0, baseLogs.Len())
	assert.Equal(t, 1, reqLogs.Len())
}
