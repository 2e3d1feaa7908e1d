package service

import "fmt"

// MalformedPayloadError is returned when a forwarded payload is not a
// valid record. The payload is discarded.
type MalformedPayloadError struct {
	Raw []byte
	Err error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// PersistenceError is returned when the sink rejects or fails an insert.
// The record is dropped; inserts are never retried.
type PersistenceError struct {
	Sink string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist to %s: %v", e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
