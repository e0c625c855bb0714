// Package storage persists finalized trials to a SQLite database, one row
// per trial, written incrementally as the search runs. It complements the
// JSON artifacts with a queryable record that survives interrupts at any
// point.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/thalesfsp/tabtune/internal/search"
	"github.com/thalesfsp/tabtune/internal/train"
)

//////
// Const, vars, types.
//////

const schema = `
CREATE TABLE IF NOT EXISTS trials (
	study      TEXT    NOT NULL,
	number     INTEGER NOT NULL,
	state      TEXT    NOT NULL,
	value      REAL,
	params     TEXT    NOT NULL,
	detail     TEXT,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (study, number)
);
`

// TrialRecord is one stored trial row. Params and Detail hold JSON.
type TrialRecord struct {
	Study     string   `db:"study"`
	Number    int      `db:"number"`
	State     string   `db:"state"`
	Value     *float64 `db:"value"`
	Params    string   `db:"params"`
	Detail    *string  `db:"detail"`
	CreatedAt string   `db:"created_at"`
}

// Store wraps SQLite access for trial records.
type Store struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

//////
// Factory.
//////

// Open opens or creates the database at path and applies the schema.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating storage directory %s", dir)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "applying schema")
	}

	return &Store{db: db, log: log}, nil
}

//////
// Methods.
//////

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTrial upserts one finalized trial.
func (s *Store) RecordTrial(ctx context.Context, study *search.Study, t *search.Trial) error {
	params, err := json.Marshal(t.Params())
	if err != nil {
		return errors.Wrapf(err, "marshaling params of trial %d", t.Number)
	}

	rec := TrialRecord{
		Study:     study.Name(),
		Number:    t.Number,
		State:     t.State().String(),
		Params:    string(params),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if v, ok := t.Value(); ok {
		rec.Value = &v
	}

	if attr, ok := t.UserAttr(train.DetailKey); ok {
		detail, err := json.Marshal(attr)
		if err != nil {
			return errors.Wrapf(err, "marshaling detail of trial %d", t.Number)
		}

		str := string(detail)
		rec.Detail = &str
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO trials (study, number, state, value, params, detail, created_at)
		VALUES (:study, :number, :state, :value, :params, :detail, :created_at)`,
		rec)

	return errors.Wrapf(err, "recording trial %d", t.Number)
}

// ListTrials returns all stored trials of a study, ordered by number.
func (s *Store) ListTrials(ctx context.Context, studyName string) ([]TrialRecord, error) {
	var records []TrialRecord

	err := s.db.SelectContext(ctx, &records, `
		SELECT study, number, state, value, params, detail, created_at
		FROM trials
		WHERE study = ?
		ORDER BY number`,
		studyName)
	if err != nil {
		return nil, errors.Wrapf(err, "listing trials of study %s", studyName)
	}

	return records, nil
}

// Callback returns a driver callback that records every finalized trial.
// Storage failures are logged and do not interrupt the search.
func (s *Store) Callback() search.Callback {
	return func(study *search.Study, trial *search.Trial) {
		if err := s.RecordTrial(context.Background(), study, trial); err != nil {
			s.log.Errorw("recording trial", "trial", trial.Number, "error", err)
		}
	}
}
