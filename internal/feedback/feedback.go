// Package feedback stores reviewer corrections in an append-only ledger.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Record is one reviewer correction.
type Record struct {
	Filename       string    `json:"filename" validate:"required"`
	PredictedLabel string    `json:"predicted_label"`
	CorrectedLabel string    `json:"corrected_label" validate:"required"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReadResult holds the readable records in append order and the number of
// malformed rows that were skipped.
type ReadResult struct {
	Records []Record `json:"records"`
	Skipped int      `json:"skipped"`
}

// Ledger is an append-only store of corrections. Append is durable once it
// returns nil and never reorders earlier records.
type Ledger interface {
	Append(ctx context.Context, r Record) error
	ReadAll(ctx context.Context) (ReadResult, error)
	Close() error
}

var validate = validator.New()

// Validate checks the fields every stored record must carry.
func (r Record) Validate() error {
	r.Filename = strings.TrimSpace(r.Filename)
	r.CorrectedLabel = strings.TrimSpace(r.CorrectedLabel)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid feedback record: %w", err)
	}
	if r.Timestamp.IsZero() {
		return errors.New("invalid feedback record: timestamp is not set")
	}
	return nil
}

// Stamp returns a copy of r with the timestamp set to now, in UTC.
func (r Record) Stamp(now time.Time) Record {
	r.Timestamp = now.UTC()
	r.Filename = strings.TrimSpace(r.Filename)
	r.PredictedLabel = strings.TrimSpace(r.PredictedLabel)
	r.CorrectedLabel = strings.TrimSpace(r.CorrectedLabel)
	return r
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 and zone-less ISO-8601 timestamps; the latter
// are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
