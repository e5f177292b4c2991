package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/service"
	"github.com/spigell/resume-classifier/internal/store"
)

const resume = "Senior engineer with Python code reviews, Go services and on-call duties across a distributed platform team."

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()

	cat, err := catalog.New([]catalog.Role{
		{ID: "Engineer", Description: "builds software", Keywords: []string{"python", "code"}, Category: "Tech"},
		{ID: "Sales", Description: "sells products", Keywords: []string{"quota", "client"}, Category: "Biz"},
		{ID: "Support", Description: "helps customers", Keywords: []string{"tickets"}},
	})
	require.NoError(t, err)

	emb := embedding.NewHashEmbedder(64)
	idx, err := embedding.BuildIndex(context.Background(), emb, cat)
	require.NoError(t, err)

	ledger, err := feedback.OpenCSV(filepath.Join(dir, "corrections_log.csv"), nil)
	require.NoError(t, err)

	svc := service.New(service.Deps{
		Scorer:    scorer.New(cat, idx, emb, nil),
		Store:     store.New(filepath.Join(dir, "model.json"), nil),
		Ledger:    ledger,
		Extractor: extract.New(100, time.Second),
	})
	return NewRouter(svc, nil, Options{MaxUploadBytes: 1 << 20}), dir
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, filename string, data []byte, topN string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	if topN != "" {
		require.NoError(t, mw.WriteField("top_n", topN))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/classify", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClassifyText(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/classify/text", map[string]interface{}{"text": resume, "top_n": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	var res scorer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.TopMatches, 2)
	assert.Len(t, res.Similarities, 3)
	assert.Equal(t, res.TopMatches[0].Role, res.Label)
	assert.Equal(t, store.ModeEmbedding, res.Mode)
	assert.Equal(t, []string{"python", "code"}, res.MatchedKeywords["Engineer"])
	assert.Equal(t, catalog.DefaultCategory, res.Categories["Support"])
}

func TestClassifyTextErrors(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{name: "too short", body: map[string]interface{}{"text": "go developer"}, status: http.StatusUnprocessableEntity},
		{name: "missing text", body: map[string]interface{}{"top_n": 2}, status: http.StatusBadRequest},
		{name: "negative top_n", body: map[string]interface{}{"text": resume, "top_n": -1}, status: http.StatusBadRequest},
		{name: "unknown field", body: map[string]interface{}{"text": resume, "model": "x"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := doJSON(t, h, http.MethodPost, "/classify/text", tt.body)
		assert.Equal(t, tt.status, rec.Code, tt.name)
	}
}

func TestClassifyUpload(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	rec := upload(t, h, "jane.txt", []byte(resume), "1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Filename   string         `json:"filename"`
		Label      string         `json:"label"`
		TopMatches scorer.Ranking `json:"top_matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jane.txt", body.Filename)
	assert.Len(t, body.TopMatches, 1)
	assert.NotEmpty(t, body.Label)

	tests := []struct {
		name     string
		filename string
		data     []byte
		topN     string
		status   int
	}{
		{name: "unsupported", filename: "cv.exe", data: []byte(resume), status: http.StatusUnsupportedMediaType},
		{name: "unreadable", filename: "cv.docx", data: []byte("not a docx"), status: http.StatusBadRequest},
		{name: "too short", filename: "cv.txt", data: []byte("short"), status: http.StatusUnprocessableEntity},
		{name: "missing file", status: http.StatusBadRequest},
		{name: "bad top_n", filename: "cv.txt", data: []byte(resume), topN: "many", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := upload(t, h, tt.filename, tt.data, tt.topN)
		assert.Equal(t, tt.status, rec.Code, tt.name)
	}
}

func TestFeedbackEndpoints(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/feedback", FeedbackRequest{
		Filename:       "jane.pdf",
		PredictedLabel: "Engineer",
		CorrectedLabel: "Sales",
		Confidence:     0.31,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored feedback.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Sales", stored.CorrectedLabel)
	assert.False(t, stored.Timestamp.IsZero())

	rec = doJSON(t, h, http.MethodPost, "/feedback", map[string]interface{}{"filename": "jane.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CorrectedLabel")

	rec = doJSON(t, h, http.MethodGet, "/feedback", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count   int               `json:"count"`
		Skipped int               `json:"skipped"`
		Records []feedback.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "jane.pdf", list.Records[0].Filename)
}

func TestReloadModel(t *testing.T) {
	t.Parallel()
	h, dir := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/reload-model", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(store.ModeEmbedding))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.json"), []byte("{corrupt"), 0o644))
	rec = doJSON(t, h, http.MethodPost, "/reload-model", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/classify/text", map[string]interface{}{"text": resume})
	assert.Equal(t, http.StatusOK, rec.Code, "classification must survive a failed reload")
}

func TestHealthAndRoles(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","mode":"embedding","roles":3}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Roles []catalog.Role `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Roles, 3)
	assert.Equal(t, "Engineer", body.Roles[0].ID)
}

func TestRecovererAndRequestID(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	h := requestID(accessLog(log)(recoverer(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
	assert.Equal(t, 1, observed.FilterMessage("handler panic").Len())

	access := observed.FilterMessage("request").All()
	require.Len(t, access, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])
	assert.True(t, strings.EqualFold(id, access[0].ContextMap()["request_id"].(string)))
}
