// Package database holds helpers shared by the Postgres-backed stores.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultQueryTimeout bounds pings and point reads.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds inserts.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultBulkTimeout bounds full-table snapshots and migrations.
	DefaultBulkTimeout = 30 * time.Second
)

func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

func BulkContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultBulkTimeout)
}

// PostgresConfig is the connection block shared by service configs.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString renders a postgres:// URL. User and password are escaped.
func (c PostgresConfig) ConnString() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}
