package feedback

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const csvColumns = 5

// CSVLedger keeps records as header-less rows
// filename,predicted_label,corrected_label,confidence,timestamp.
type CSVLedger struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// OpenCSV returns a ledger backed by the file at path. The file is created on
// the first append.
func OpenCSV(path string, logger *zap.Logger) (*CSVLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("feedback ledger path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	return &CSVLedger{path: path, logger: logger}, nil
}

func (l *CSVLedger) Append(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if err := writeRow(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRow(f *os.File, r Record) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{
		r.Filename,
		r.PredictedLabel,
		r.CorrectedLabel,
		strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		formatTimestamp(r.Timestamp),
	}); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

func (l *CSVLedger) ReadAll(ctx context.Context) (ReadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := ReadResult{Records: []Record{}}

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.Skipped++
			l.logger.Warn("skipping unreadable ledger row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read ledger: %w", err)
		}

		rec, err := parseRow(row)
		if err != nil {
			res.Skipped++
			l.logger.Warn("skipping malformed ledger row", zap.Int("line", line), zap.Error(err))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (l *CSVLedger) Close() error {
	return nil
}

func parseRow(row []string) (Record, error) {
	if len(row) != csvColumns {
		return Record{}, fmt.Errorf("expected %d columns, got %d", csvColumns, len(row))
	}
	rec := Record{
		Filename:       strings.TrimSpace(row[0]),
		PredictedLabel: strings.TrimSpace(row[1]),
		CorrectedLabel: strings.TrimSpace(row[2]),
	}
	if c := strings.TrimSpace(row[3]); c != "" {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return Record{}, fmt.Errorf("confidence: %w", err)
		}
		rec.Confidence = v
	}
	ts, err := parseTimestamp(row[4])
	if err != nil {
		return Record{}, err
	}
	rec.Timestamp = ts
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
