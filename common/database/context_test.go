package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextTimeouts(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context) (context.Context, context.CancelFunc)
		want time.Duration
	}{
		{"query", QueryContext, DefaultQueryTimeout},
		{"write", WriteContext, DefaultWriteTimeout},
		{"bulk", BulkContext, DefaultBulkTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			ctx, cancel := tt.fn(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, start.Add(tt.want), deadline, time.Second)
		})
	}
}

func TestConnString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		Database: "scalperguard",
		User:     "sg",
		Password: "p@ss word",
	}
	assert.Equal(t, "postgres://sg:p%40ss%20word@db:5432/scalperguard?sslmode=disable", cfg.ConnString())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.ConnString(), "sslmode=require")
}
