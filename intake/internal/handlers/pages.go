package handlers

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/telhawk-systems/relay/common/httputil"
	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/intake/internal/metrics"
)

const (
	htmlContentType    = "text/html; charset=utf-8"
	defaultContentType = "application/octet-stream"

	templatesDir = "templates"
	staticDir    = "static"
)

// notFoundFallback is written when the error template itself is missing.
var notFoundFallback = []byte("<!DOCTYPE html><title>Not found</title><h1>404</h1>\n")

// PageHandler serves the HTML pages and static assets of the intake site
// from a page tree laid out as templates/ and static/.
type PageHandler struct {
	pages  fs.FS
	logger *logging.Logger
}

func NewPageHandler(pages fs.FS, logger *logging.Logger) *PageHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PageHandler{pages: pages, logger: logger}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "index", path.Join(templatesDir, "index.html"))
}

func (h *PageHandler) Message(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "message", path.Join(templatesDir, "message.html"))
}

// Static serves /static/<path>. Paths that are not valid fs paths (for
// example ones containing "..") and directories are treated as missing.
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	name := staticDir + "/" + rel
	if rel == "" || !fs.ValidPath(name) {
		h.NotFound(w, r)
		return
	}
	h.serveFile(w, r, "static", name)
}

// NotFound writes the error template with status 404. It is also the
// router's handler for unknown paths and unsupported methods.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	metrics.PageRequests.WithLabelValues("error", strconv.Itoa(http.StatusNotFound)).Inc()

	data, err := fs.ReadFile(h.pages, path.Join(templatesDir, "error.html"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "error template unavailable", logging.Error(err))
		data = notFoundFallback
	}
	httputil.WriteBytes(w, http.StatusNotFound, htmlContentType, data)
}

func (h *PageHandler) serveFile(w http.ResponseWriter, r *http.Request, page, name string) {
	data, err := readRegularFile(h.pages, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "page read failed", logging.Path(name), logging.Error(err))
		}
		h.NotFound(w, r)
		return
	}

	metrics.PageRequests.WithLabelValues(page, strconv.Itoa(http.StatusOK)).Inc()
	httputil.WriteBytes(w, http.StatusOK, contentTypeFor(name), data)
}

func readRegularFile(fsys fs.FS, name string) ([]byte, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(fsys, name)
}

// contentTypeFor infers a content type from the file extension, falling
// back to application/octet-stream.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
