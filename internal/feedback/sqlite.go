package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	predicted_label TEXT NOT NULL,
	corrected_label TEXT NOT NULL,
	confidence REAL NOT NULL,
	timestamp TEXT NOT NULL
)`

// SQLiteLedger keeps records in a SQLite table ordered by insertion id.
type SQLiteLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create feedback table: %w", err)
	}
	return &SQLiteLedger{db: db, logger: logger}, nil
}

func (l *SQLiteLedger) Append(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO feedback (filename, predicted_label, corrected_label, confidence, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, r.Filename, r.PredictedLabel, r.CorrectedLabel, r.Confidence, formatTimestamp(r.Timestamp))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) ReadAll(ctx context.Context) (ReadResult, error) {
	res := ReadResult{Records: []Record{}}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, filename, predicted_label, corrected_label, confidence, timestamp
		FROM feedback
		ORDER BY id
	`)
	if err != nil {
		return res, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			rec Record
			ts  string
		)
		if err := rows.Scan(&id, &rec.Filename, &rec.PredictedLabel, &rec.CorrectedLabel, &rec.Confidence, &ts); err != nil {
			res.Skipped++
			l.logger.Warn("skipping unreadable feedback row", zap.Error(err))
			continue
		}
		parsed, err := parseTimestamp(ts)
		if err == nil {
			rec.Timestamp = parsed
			err = rec.Validate()
		}
		if err != nil {
			res.Skipped++
			l.logger.Warn("skipping malformed feedback row", zap.Int64("id", id), zap.Error(err))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("read feedback: %w", err)
	}
	return res, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
