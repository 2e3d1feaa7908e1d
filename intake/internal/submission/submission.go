// Package submission turns an inbound POST /submit request into a Record.
package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/telhawk-systems/relay/common/models"
)

// DefaultMaxBodyBytes bounds how much of a request body is read.
const DefaultMaxBodyBytes = 1 << 20

// Encoding is the body encoding selected from the Content-Type header.
type Encoding string

const (
	EncodingForm Encoding = "form"
	EncodingJSON Encoding = "json"
	EncodingRaw  Encoding = "raw"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// ClientPayloadError reports a body that could not be decoded. The decoder
// still returns a usable Record alongside it.
type ClientPayloadError struct {
	Encoding Encoding
	Err      error
}

func (e *ClientPayloadError) Error() string {
	return fmt.Sprintf("decode %s submission: %v", e.Encoding, e.Err)
}

func (e *ClientPayloadError) Unwrap() error { return e.Err }

var errNotObject = errors.New("body is not a JSON object")

// EncodingFor picks the decoding policy for a Content-Type header value.
// Matching is by substring, so parameters such as charset are tolerated.
func EncodingFor(contentType string) Encoding {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, contentTypeForm):
		return EncodingForm
	case strings.Contains(ct, contentTypeJSON):
		return EncodingJSON
	default:
		return EncodingRaw
	}
}

// Decoder reads submissions with a bounded body size.
type Decoder struct {
	maxBodyBytes int64
}

// NewDecoder returns a Decoder. maxBodyBytes <= 0 selects DefaultMaxBodyBytes.
func NewDecoder(maxBodyBytes int64) *Decoder {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Decoder{maxBodyBytes: maxBodyBytes}
}

// Decode reads r's body and builds a Record.
//
// A non-nil error is always a *ClientPayloadError, and the returned Record is
// then the degraded {Anonymous, ""} submission, which callers forward as-is.
func (d *Decoder) Decode(w http.ResponseWriter, r *http.Request) (models.Record, Encoding, error) {
	enc := EncodingFor(r.Header.Get("Content-Type"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBodyBytes))
	if err != nil {
		return models.NewRecord("", ""), enc, &ClientPayloadError{Encoding: enc, Err: fmt.Errorf("read body: %w", err)}
	}

	rec, err := DecodeBody(enc, body)
	if err != nil {
		return rec, enc, &ClientPayloadError{Encoding: enc, Err: err}
	}
	return rec, enc, nil
}

// DecodeBody applies the decoding policy for enc to an already-read body.
// On error the degraded {Anonymous, ""} Record is returned.
func DecodeBody(enc Encoding, body []byte) (models.Record, error) {
	text := strings.ToValidUTF8(string(body), "�")

	switch enc {
	case EncodingForm:
		return decodeForm(text)
	case EncodingJSON:
		return decodeJSON([]byte(text))
	default:
		return models.NewRecord("", text), nil
	}
}

// decodeForm is lenient: pairs with broken escapes are dropped and the rest
// of the form is still used.
func decodeForm(body string) (models.Record, error) {
	values, _ := url.ParseQuery(body)
	return models.NewRecord(values.Get("username"), values.Get("message")), nil
}

func decodeJSON(body []byte) (models.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return models.NewRecord("", ""), nil
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.NewRecord("", ""), errNotObject
		}
		return models.NewRecord("", ""), fmt.Errorf("parse json: %w", err)
	}
	if fields == nil {
		return models.NewRecord("", ""), errNotObject
	}

	return models.NewRecord(field(fields, "username"), field(fields, "message")), nil
}

// field returns a member as text: strings as-is, null or absent as "", and
// any other JSON value in its compact JSON form.
func field(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
