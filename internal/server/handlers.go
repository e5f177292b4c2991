package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/service"
	"github.com/spigell/resume-classifier/internal/store"
	"go.uber.org/zap"
)

const maxTopN = 100

type handler struct {
	svc       *service.Service
	logger    *zap.Logger
	maxUpload int64
}

// ClassifyTextRequest is the body of POST /classify/text.
type ClassifyTextRequest struct {
	Text string `json:"text" validate:"required"`
	TopN int    `json:"top_n" validate:"gte=0,lte=100"`
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Filename       string  `json:"filename" validate:"required"`
	PredictedLabel string  `json:"predicted_label"`
	CorrectedLabel string  `json:"corrected_label" validate:"required"`
	Confidence     float64 `json:"confidence"`
}

type classifyResponse struct {
	Filename string `json:"filename,omitempty"`
	*scorer.Result
}

// classifyUpload handles POST /classify
func (h *handler) classifyUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType, "only PDF, DOCX and TXT files are supported")
		return
	}

	topN, err := parseTopN(r.FormValue("top_n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	res, err := h.svc.ClassifyDocument(r.Context(), header.Filename, data, topN)
	if err != nil {
		h.classifyError(w, r, err)
		return
	}

	h.logger.Info("resume classified",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("file", header.Filename),
		zap.String("label", res.Label),
		zap.String("mode", string(res.Mode)),
	)
	writeJSON(w, http.StatusOK, classifyResponse{Filename: header.Filename, Result: res})
}

// classifyText handles POST /classify/text
func (h *handler) classifyText(w http.ResponseWriter, r *http.Request) {
	var req ClassifyTextRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.ClassifyText(r.Context(), req.Text, req.TopN)
	if err != nil {
		h.classifyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{Result: res})
}

func (h *handler) classifyError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		extErr *extract.ExtractionError
		cfgErr *catalog.ConfigurationError
	)
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &extErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extract.ErrTooShort), errors.Is(err, scorer.ErrEmptyText):
		writeError(w, http.StatusUnprocessableEntity, "resume text is too short or unreadable")
	case errors.As(err, &cfgErr):
		h.logger.Error("classifier misconfigured", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("classification failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "classification failed")
	}
}

// reload handles GET|POST /reload-model
func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	mode, err := h.svc.Reload(r.Context())
	if err != nil {
		var loadErr *store.ModelLoadError
		if errors.As(err, &loadErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "mode": string(mode)})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := "model reloaded"
	if mode == store.ModeEmbedding {
		status = "model artifact not found, using embedding fallback"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "mode": string(mode)})
}

// submitFeedback handles POST /feedback
func (h *handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.SubmitFeedback(r.Context(), feedback.Record{
		Filename:       req.Filename,
		PredictedLabel: req.PredictedLabel,
		CorrectedLabel: req.CorrectedLabel,
		Confidence:     req.Confidence,
	})
	if err != nil {
		h.logger.Error("failed to append feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// listFeedback handles GET /feedback
func (h *handler) listFeedback(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Feedback(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(res.Records),
		"skipped": res.Skipped,
		"records": res.Records,
	})
}

// roles handles GET /roles
func (h *handler) roles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"roles": h.svc.Catalog().Roles()})
}

// health handles GET /health
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"mode":   h.svc.Mode(),
		"roles":  h.svc.Catalog().Len(),
	})
}

func parseTopN(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxTopN {
		return 0, fmt.Errorf("top_n must be an integer between 0 and %d", maxTopN)
	}
	return n, nil
}
