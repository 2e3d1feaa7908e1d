package handlers

import (
	"context"
	"net/http"

	"github.com/telhawk-systems/relay/common/httputil"
	"github.com/telhawk-systems/relay/common/models"
	"github.com/telhawk-systems/relay/intake/internal/metrics"
	"github.com/telhawk-systems/relay/intake/internal/service"
	"github.com/telhawk-systems/relay/intake/internal/submission"
)

// Submitter is the part of the submit service the handler depends on.
type Submitter interface {
	Submit(ctx context.Context, rec models.Record, clientKey string) service.Outcome
	NotePayloadError(ctx context.Context, err error)
}

type SubmitHandler struct {
	decoder *submission.Decoder
	service Submitter
}

func NewSubmitHandler(decoder *submission.Decoder, svc Submitter) *SubmitHandler {
	return &SubmitHandler{decoder: decoder, service: svc}
}

// Submit decodes the body, forwards the record and redirects to "/". The
// response is the same whatever happened to the submission.
func (h *SubmitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, enc, err := h.decoder.Decode(w, r)
	metrics.SubmissionsTotal.WithLabelValues(string(enc)).Inc()
	if err != nil {
		h.service.NotePayloadError(ctx, err)
	}

	h.service.Submit(ctx, rec, httputil.ClientKey(r))

	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusFound)
}
