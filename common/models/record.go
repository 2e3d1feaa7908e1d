// Package models defines the record shape shared by the intake and ingestion
// services.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultUsername is used whenever a submission carries no username.
const DefaultUsername = "Anonymous"

// TimestampLayout is the string form of received_at in persisted documents.
const TimestampLayout = time.RFC3339Nano

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Record is one normalized submission. It is a value type: every method that
// changes a field returns a new Record.
type Record struct {
	username   string
	message    string
	receivedAt time.Time
}

// NewRecord builds a Record, substituting DefaultUsername for an empty name.
func NewRecord(username, message string) Record {
	if username == "" {
		username = DefaultUsername
	}
	return Record{username: username, message: message}
}

func (r Record) Username() string { return r.username }

func (r Record) Message() string { return r.message }

// ReceivedAt is the zero time until the ingestion service stamps the record.
func (r Record) ReceivedAt() time.Time { return r.receivedAt }

// Stamped reports whether received_at has been set.
func (r Record) Stamped() bool { return !r.receivedAt.IsZero() }

// WithReceivedAt returns a copy of r stamped with t (normalized to UTC).
func (r Record) WithReceivedAt(t time.Time) Record {
	r.receivedAt = t.UTC()
	return r
}

// Payload is the wire form forwarded from intake to ingestion.
type Payload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Payload returns the wire form of r. received_at never travels on the wire.
func (r Record) Payload() Payload {
	return Payload{Username: r.username, Message: r.message}
}

// Document is the persisted shape handed to a sink.
type Document struct {
	Username   string `json:"username" bson:"username"`
	Message    string `json:"message" bson:"message"`
	ReceivedAt string `json:"received_at" bson:"received_at"`
}

// Document returns the persisted shape of r.
func (r Record) Document() Document {
	return Document{
		Username:   r.username,
		Message:    r.message,
		ReceivedAt: r.receivedAt.Format(TimestampLayout),
	}
}

// EncodePayload serializes the wire form of r.
func EncodePayload(r Record) ([]byte, error) {
	data, err := json.Marshal(r.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses a forwarded payload into an unstamped Record.
//
// The payload must be a JSON object. username and message must be strings
// when present; absent members take their defaults and unknown members are
// ignored.
func DecodePayload(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return Record{}, ErrNotObject
		}
	}

	var wire struct {
		Username *string `json:"username"`
		Message  *string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Record{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	var username, message string
	if wire.Username != nil {
		username = *wire.Username
	}
	if wire.Message != nil {
		message = *wire.Message
	}
	return NewRecord(username, message), nil
}
