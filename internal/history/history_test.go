package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/store"
)

func TestAppendAndReadAll(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "classification_log.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	res := &scorer.Result{
		Label:      "Sales",
		Confidence: 0.61,
		TopMatches: scorer.Ranking{{Role: "Sales", Score: 0.61}, {Role: "Engineer", Score: 0.2}},
		Mode:       store.ModeEmbedding,
	}
	if err := l.Append(context.Background(), "/tmp/uploads/cv.txt", res); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(context.Background(), "second.pdf", res); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("{not json\n")
	_ = f.Close()

	entries, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.File != "cv.txt" || !first.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected entry %+v", first)
	}
	if got := first.Result.TopMatches.Roles(); len(got) != 2 || got[0] != "Sales" {
		t.Fatalf("ranking order lost: %v", got)
	}
}

func TestAppendCancelled(t *testing.T) {
	t.Parallel()

	l, err := Open(filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Append(ctx, "cv.pdf", &scorer.Result{}); err == nil {
		t.Fatalf("expected context error")
	}
}
