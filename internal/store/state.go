package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run-state keys written by the map and changelog commands.
const (
	StateBranch      = "branch"
	StateMinRevision = "min_revision"
	StateMaxRevision = "max_revision"
	StateAdjustMode  = "adjust_mode"
	StateDetector    = "detector"
	StateLastRun     = "last_run"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putState(db execer, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO run_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SetRunState records a run parameter.
func (s *Store) SetRunState(key, value string) error {
	if err := putState(s.db, key, value); err != nil {
		return fmt.Errorf("set run state %q: %w", key, err)
	}
	return nil
}

// GetRunState returns a recorded run parameter. ok is false for a key that
// was never set.
func (s *Store) GetRunState(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM run_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get run state %q: %w", key, err)
	}
	return value, true, nil
}

// Revision pairs a revision number with the commit it was taken from.
type Revision struct {
	Revision   int    `json:"revision"`
	CommitHash string `json:"commitHash"`
}

// InsertRevisions replaces the stored revision list. hashes[i] is revision i.
func (s *Store) InsertRevisions(hashes []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert revisions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM revisions`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear revisions: %w", err)
	}
	for i, h := range hashes {
		if _, err := tx.Exec(`INSERT INTO revisions (revision, commit_hash) VALUES (?, ?)`, i, h); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert revision %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revisions: %w", err)
	}
	return nil
}

// QueryRevisions returns the stored revision list in revision order.
func (s *Store) QueryRevisions() ([]Revision, error) {
	rows, err := s.db.Query(`SELECT revision, commit_hash FROM revisions ORDER BY revision`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.Revision, &r.CommitHash); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
