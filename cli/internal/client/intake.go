package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Submission body encodings understood by the intake service.
const (
	EncodingForm = "form"
	EncodingJSON = "json"
	EncodingRaw  = "raw"
)

// SubmitResult describes the intake response. Intake always answers a
// submission with a redirect, so Location is the interesting part.
type SubmitResult struct {
	StatusCode int
	Location   string
	RequestID  string
}

// Redirected reports whether intake answered with the expected 302.
func (r SubmitResult) Redirected() bool {
	return r.StatusCode == http.StatusFound
}

type IntakeClient struct {
	baseURL string
	client  *http.Client
}

// NewIntakeClient returns a client that reports redirects instead of
// following them.
func NewIntakeClient(baseURL string, timeout time.Duration) *IntakeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IntakeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Submit posts one submission to /submit.
func (c *IntakeClient) Submit(ctx context.Context, encoding, username, message string) (SubmitResult, error) {
	body, contentType, err := encodeSubmission(encoding, username, message)
	if err != nil {
		return SubmitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return SubmitResult{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return SubmitResult{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}, nil
}

// encodeSubmission builds the body the browser form (form), an API caller
// (json) or a plain text client (raw) would send. Raw bodies carry only the
// message; intake stores them as Anonymous.
func encodeSubmission(encoding, username, message string) ([]byte, string, error) {
	switch encoding {
	case EncodingForm, "":
		values := url.Values{}
		values.Set("username", username)
		values.Set("message", message)
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	case EncodingJSON:
		data, err := json.Marshal(map[string]string{
			"username": username,
			"message":  message,
		})
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	case EncodingRaw:
		return []byte(message), "text/plain; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("unknown encoding %q (supported: form, json, raw)", encoding)
	}
}
