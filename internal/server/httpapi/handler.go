// Package httpapi serves the object endpoints that pre-signed URLs point at:
// PUTs into the local store and multipart completion for every store.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/server/auth"
	"github.com/SecurityWorks/ente/internal/server/storage"
)

// MaxObjectSize bounds one PUT body, which is a whole object or one part.
const MaxObjectSize = 10 << 30

// ObjectWriter is implemented by stores that receive object bodies
// themselves.
type ObjectWriter interface {
	Write(ctx context.Context, c *auth.ObjectClaims, body io.Reader) (string, error)
}

type handler struct {
	signer  *storage.Signer
	store   storage.ObjectStore
	maxSize int64
	log     logging.Logger
}

// NewHandler routes the object endpoints. PUT is only served when store is
// an ObjectWriter.
func NewHandler(signer *storage.Signer, store storage.ObjectStore, log logging.Logger) http.Handler {
	return newHandler(signer, store, MaxObjectSize, log)
}

func newHandler(signer *storage.Signer, store storage.ObjectStore, maxSize int64, log logging.Logger) http.Handler {
	h := &handler{signer: signer, store: store, maxSize: maxSize, log: log.With("module", "http_api")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST "+storage.CompletePath, h.complete)
	if w, ok := store.(ObjectWriter); ok {
		mux.HandleFunc("PUT "+storage.ObjectPath, h.put(w))
	}
	return requestLogging(h.log, mux)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "OK")
}

func (h *handler) put(store ObjectWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.signer.Verify(r.URL.Query().Get("token"), auth.OpPut)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		etag, err := store.Write(r.Context(), claims, http.MaxBytesReader(w, r.Body, h.maxSize))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
	}
}

func (h *handler) complete(w http.ResponseWriter, r *http.Request) {
	claims, err := h.signer.Verify(r.URL.Query().Get("token"), auth.OpComplete)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if claims.UploadID == "" {
		h.fail(w, r, common.ErrInvalidToken)
		return
	}

	parts, err := storage.ParseComplete(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.CompleteMultipart(r.Context(), claims.Key, claims.UploadID, parts); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info(r.Context(), "multipart upload completed", "key", claims.Key, "parts", len(parts))
	w.WriteHeader(http.StatusOK)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		code = http.StatusForbidden
	case errors.Is(err, common.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		code = http.StatusNotFound
	case errors.As(err, &tooLarge):
		code = http.StatusRequestEntityTooLarge
	default:
		h.log.Error(r.Context(), "object request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", code)
		return
	}
	http.Error(w, err.Error(), code)
}
