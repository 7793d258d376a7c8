package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService  = "service"
	FieldIP       = "ip"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldWallet   = "wallet"
	FieldDecision = "decision"
	FieldRisk     = "risk"
	FieldSource   = "source"
	FieldCount    = "count"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Wallet returns a slog attribute for a wallet address.
func Wallet(addr string) slog.Attr {
	return slog.String(FieldWallet, addr)
}

// Decision returns a slog attribute for an enforcement decision label.
func Decision(label string) slog.Attr {
	return slog.String(FieldDecision, label)
}

// Risk returns a slog attribute for a 0-100 risk score.
func Risk(score float64) slog.Attr {
	return slog.Float64(FieldRisk, score)
}

// Source returns a slog attribute naming a transfer log backend.
func Source(name string) slog.Attr {
	return slog.String(FieldSource, name)
}

// Count returns a slog attribute for a generic item count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}
