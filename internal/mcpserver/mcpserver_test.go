package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/service"
	"github.com/spigell/resume-classifier/internal/store"
)

const resume = "Account executive who consistently beats quota, manages enterprise client relationships and negotiates renewals."

func newTools(t *testing.T) (*tools, string) {
	t.Helper()
	dir := t.TempDir()

	cat, err := catalog.New([]catalog.Role{
		{ID: "Engineer", Description: "builds software", Keywords: []string{"python", "code"}},
		{ID: "Sales", Description: "sells products", Keywords: []string{"quota", "client"}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	emb := embedding.NewHashEmbedder(64)
	idx, err := embedding.BuildIndex(context.Background(), emb, cat)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	ledger, err := feedback.OpenCSV(filepath.Join(dir, "corrections_log.csv"), nil)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	svc := service.New(service.Deps{
		Scorer:    scorer.New(cat, idx, emb, nil),
		Store:     store.New(filepath.Join(dir, "model.json"), nil),
		Ledger:    ledger,
		Extractor: extract.New(100, time.Second),
	})
	return &tools{svc: svc}, dir
}

func call(args interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content %T", c)
	}
	return ""
}

func TestClassifyTool(t *testing.T) {
	t.Parallel()
	tl, dir := newTools(t)

	res, err := tl.classify(context.Background(), call(map[string]interface{}{"text": resume, "top_n": float64(1)}))
	if err != nil || res.IsError {
		t.Fatalf("classify: %v %s", err, resultText(t, res))
	}
	var out scorer.Result
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.TopMatches) != 1 || len(out.MatchedKeywords["Sales"]) != 2 {
		t.Fatalf("unexpected result %+v", out)
	}

	path := filepath.Join(dir, "cv.md")
	if err := os.WriteFile(path, []byte(resume), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, _ = tl.classify(context.Background(), call(map[string]interface{}{"path": path, "top_n": "2"}))
	if res.IsError {
		t.Fatalf("classify by path: %s", resultText(t, res))
	}

	tests := []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"text": resume, "unknown": true},
		map[string]interface{}{"text": "short"},
		map[string]interface{}{"path": filepath.Join(dir, "missing.pdf")},
		"not a map",
	}
	for _, args := range tests {
		res, err := tl.classify(context.Background(), call(args))
		if err != nil || !res.IsError {
			t.Fatalf("expected tool error for %v", args)
		}
	}
}

func TestSubmitFeedbackTool(t *testing.T) {
	t.Parallel()
	tl, _ := newTools(t)

	res, err := tl.submitFeedback(context.Background(), call(map[string]interface{}{
		"filename":        "cv.pdf",
		"predicted_label": "Engineer",
		"corrected_label": "Sales",
		"confidence":      0.25,
	}))
	if err != nil || res.IsError {
		t.Fatalf("submit_feedback: %v", err)
	}
	if !strings.Contains(resultText(t, res), "Engineer -> Sales") {
		t.Fatalf("unexpected text %q", resultText(t, res))
	}

	res, _ = tl.submitFeedback(context.Background(), call(map[string]interface{}{"filename": "cv.pdf"}))
	if !res.IsError {
		t.Fatalf("expected error without corrected label")
	}
}

func TestReloadTool(t *testing.T) {
	t.Parallel()
	tl, dir := newTools(t)

	res, _ := tl.reload(context.Background(), call(nil))
	if res.IsError || !strings.Contains(resultText(t, res), "embedding") {
		t.Fatalf("unexpected reload result %q", resultText(t, res))
	}

	if err := os.WriteFile(filepath.Join(dir, "model.json"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, _ = tl.reload(context.Background(), call(nil))
	if !res.IsError {
		t.Fatalf("expected reload failure for corrupt artifact")
	}
}

func TestNewRegistersTools(t *testing.T) {
	t.Parallel()
	tl, _ := newTools(t)
	if New(tl.svc, "test", nil) == nil {
		t.Fatalf("nil server")
	}
}
