// Package history appends classification results to a JSON lines log.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spigell/resume-classifier/internal/scorer"
)

// Entry is one logged classification.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	File      string         `json:"file"`
	Result    *scorer.Result `json:"result"`
}

// Log is safe for concurrent use.
type Log struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// Open returns a log writing to path; parent directories are created.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Log{path: path, now: time.Now}, nil
}

// Append writes one entry for the classified file.
func (l *Log) Append(ctx context.Context, file string, res *scorer.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(Entry{
		Timestamp: l.now().UTC(),
		File:      filepath.Base(file),
		Result:    res,
	})
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

// ReadAll returns the logged entries in order. Undecodable lines are skipped.
func (l *Log) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
