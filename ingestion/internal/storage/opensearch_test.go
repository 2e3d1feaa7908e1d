package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/relay/common/models"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	body   []byte
}

// fakeOpenSearch answers the handful of endpoints the sink uses.
type fakeOpenSearch struct {
	mu       sync.Mutex
	requests []capturedRequest
	failDocs bool
}

func (f *fakeOpenSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{r.Method, r.URL.Path, r.URL.RawQuery, body})
	failDocs := f.failDocs
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"2.11.0","distribution":"opensearch"}}`)
	case strings.HasPrefix(r.URL.Path, "/_index_template/"):
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case strings.Contains(r.URL.Path, "/_doc/"):
		if failDocs {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"type":"mapper_parsing_exception"}}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeOpenSearch) docRequests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []capturedRequest
	for _, r := range f.requests {
		if strings.Contains(r.path, "/_doc/") {
			out = append(out, r)
		}
	}
	return out
}

func newTestOpenSearchSink(t *testing.T, fake *fakeOpenSearch) *OpenSearchSink {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	sink, err := NewOpenSearchSink(OpenSearchConfig{URL: srv.URL, IndexPrefix: "relay"})
	require.NoError(t, err)
	return sink
}

func TestOpenSearchSink_Initialize(t *testing.T) {
	fake := &fakeOpenSearch{}
	sink := newTestOpenSearchSink(t, fake)

	require.NoError(t, sink.Initialize(context.Background()))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var template *capturedRequest
	for i := range fake.requests {
		if fake.requests[i].path == "/_index_template/relay-messages-template" {
			template = &fake.requests[i]
		}
	}
	require.NotNil(t, template, "index template was not installed")
	assert.Equal(t, http.MethodPut, template.method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(template.body, &body))
	assert.Equal(t, []any{"relay-messages"}, body["index_patterns"])
}

func TestOpenSearchSink_Insert(t *testing.T) {
	fake := &fakeOpenSearch{}
	sink := newTestOpenSearchSink(t, fake)
	ids := []string{"id-1", "id-2"}
	sink.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	ctx := context.Background()
	require.NoError(t, sink.Insert(ctx, stamped("alice", "hello")))
	require.NoError(t, sink.Insert(ctx, stamped("alice", "hello")))

	docs := fake.docRequests()
	require.Len(t, docs, 2, "duplicates must produce two documents")
	assert.Equal(t, "/relay-messages/_doc/id-1", docs[0].path)
	assert.Equal(t, "/relay-messages/_doc/id-2", docs[1].path)

	var doc models.Document
	require.NoError(t, json.Unmarshal(docs[0].body, &doc))
	assert.Equal(t, "alice", doc.Username)
	assert.Equal(t, "hello", doc.Message)
	assert.Equal(t, "2026-03-01T12:00:00.0000005Z", doc.ReceivedAt)
}

func TestOpenSearchSink_InsertRefresh(t *testing.T) {
	fake := &fakeOpenSearch{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink, err := NewOpenSearchSink(OpenSearchConfig{URL: srv.URL, Refresh: "wait_for"})
	require.NoError(t, err)

	require.NoError(t, sink.Insert(context.Background(), stamped("a", "b")))

	docs := fake.docRequests()
	require.Len(t, docs, 1)
	assert.True(t, strings.HasPrefix(docs[0].path, "/relay-messages/_doc/"), "default prefix is relay")
	assert.Contains(t, docs[0].query, "refresh=wait_for")
}

func TestOpenSearchSink_InsertError(t *testing.T) {
	fake := &fakeOpenSearch{failDocs: true}
	sink := newTestOpenSearchSink(t, fake)

	err := sink.Insert(context.Background(), stamped("a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestOpenSearchSink_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink, err := NewOpenSearchSink(OpenSearchConfig{URL: url})
	require.NoError(t, err)

	assert.Error(t, sink.Initialize(context.Background()))
	assert.Error(t, sink.Insert(context.Background(), stamped("a", "b")))
}
