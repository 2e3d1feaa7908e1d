package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:        "generates new request ID when not present",
			expectNewID: true,
		},
		{
			name:              "propagates existing request ID",
			existingRequestID: "existing-req-123",
		},
		{
			name:              "replaces oversized request ID",
			existingRequestID: strings.Repeat("a", maxRequestIDLen+1),
			expectNewID:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(RequestIDHeader, tt.existingRequestID)
			}
			w := httptest.NewRecorder()

			RequestID(handler).ServeHTTP(w, req)

			header := w.Header().Get(RequestIDHeader)
			if header == "" {
				t.Fatal("expected X-Request-ID header in response")
			}
			if header != captured {
				t.Errorf("header %q does not match context value %q", header, captured)
			}

			if tt.expectNewID {
				if _, err := uuid.Parse(captured); err != nil {
					t.Errorf("expected generated UUID, got %q", captured)
				}
			} else if captured != tt.existingRequestID {
				t.Errorf("request ID = %q, want %q", captured, tt.existingRequestID)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID() = %q, want abc", got)
	}
}
