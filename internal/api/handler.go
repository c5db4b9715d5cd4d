package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leonardcser/linhas-cache/internal/lines"
	"github.com/leonardcser/linhas-cache/internal/logger"
)

// Service is the part of lines.Controller the HTTP surface needs.
type Service interface {
	GetDataset(ctx context.Context) (lines.Dataset, error)
	Invalidate(ctx context.Context) error
}

// NewHandler routes the bus-line endpoints:
//
//	GET    /linha-onibus        cached dataset, 503 when unavailable
//	DELETE /linha-onibus/cache  drop the cached dataset
//	GET    /healthz             liveness
func NewHandler(svc Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /linha-onibus", func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.GetDataset(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
	mux.HandleFunc("DELETE /linha-onibus/cache", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Invalidate(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lines.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
	default:
		logger.Errorf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
