package messaging

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus is the health state of a messaging connection.
type HealthStatus struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// Flusher is implemented by clients that can round-trip to the server.
type Flusher interface {
	FlushTimeout(timeout time.Duration) error
}

// CheckClientHealth reports whether client is connected and, when it can
// flush, how long a server round-trip takes.
func CheckClientHealth(ctx context.Context, client Client) HealthStatus {
	status := HealthStatus{}

	if client == nil {
		status.Error = "client is nil"
		return status
	}

	status.Connected = client.IsConnected()
	if !status.Connected {
		status.Error = "not connected to message broker"
		return status
	}

	f, ok := client.(Flusher)
	if !ok {
		return status
	}

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	start := time.Now()
	if err := f.FlushTimeout(timeout); err != nil {
		status.Error = fmt.Sprintf("health check failed: %v", err)
	}
	status.Latency = time.Since(start)

	return status
}
