package logging

import (
	"log/slog"
	"time"
)

// Common field names shared by the intake and ingestion services.
const (
	FieldService  = "service"
	FieldUsername = "username"
	FieldRemote   = "remote_addr"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldBytes    = "bytes"
	FieldAddr     = "addr"
	FieldSink     = "sink"
	FieldOutcome  = "outcome"
	FieldRaw      = "raw"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Username returns a slog attribute for a submitter's username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// Remote returns a slog attribute for the peer address of a connection or request.
func Remote(addr string) slog.Attr {
	return slog.String(FieldRemote, addr)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error. A nil error is logged as "".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Bytes returns a slog attribute for a payload size.
func Bytes(n int) slog.Attr {
	return slog.Int(FieldBytes, n)
}

// Addr returns a slog attribute for a dial or listen address.
func Addr(addr string) slog.Attr {
	return slog.String(FieldAddr, addr)
}

// Sink returns a slog attribute for the persistence backend name.
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}

// Outcome returns a slog attribute describing how a submission or payload ended.
func Outcome(outcome string) slog.Attr {
	return slog.String(FieldOutcome, outcome)
}

// Raw returns a slog attribute holding raw payload bytes, truncated to limit.
func Raw(data []byte, limit int) slog.Attr {
	if limit > 0 && len(data) > limit {
		return slog.String(FieldRaw, string(data[:limit])+"...(truncated)")
	}
	return slog.String(FieldRaw, string(data))
}
