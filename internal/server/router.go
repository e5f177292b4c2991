// Package server exposes the classifier over HTTP.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spigell/resume-classifier/internal/service"
	"go.uber.org/zap"
)

// Options tune request handling.
type Options struct {
	MaxUploadBytes int64
}

// NewRouter creates the HTTP router with all endpoints.
func NewRouter(svc *service.Service, logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	h := &handler{svc: svc, logger: logger, maxUpload: opts.MaxUploadBytes}

	r := mux.NewRouter()
	r.Use(requestID, accessLog(logger), recoverer(logger))

	r.HandleFunc("/classify", h.classifyUpload).Methods(http.MethodPost)
	r.HandleFunc("/classify/text", h.classifyText).Methods(http.MethodPost)
	r.HandleFunc("/reload-model", h.reload).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/feedback", h.submitFeedback).Methods(http.MethodPost)
	r.HandleFunc("/feedback", h.listFeedback).Methods(http.MethodGet)
	r.HandleFunc("/roles", h.roles).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	return r
}
