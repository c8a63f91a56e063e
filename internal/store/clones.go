package store

import (
	"database/sql"
	"fmt"
)

// CloneRow is one clone fragment as persisted: the state of clone GlobalID
// in Revision.
type CloneRow struct {
	GlobalID      int    `json:"globalId"`
	Revision      int    `json:"revision"`
	PCID          int    `json:"pcId"`
	ClassID       int    `json:"classId"`
	StartLine     int    `json:"startLine"`
	EndLine       int    `json:"endLine"`
	AdditionCount int    `json:"additionCount"`
	DeletionCount int    `json:"deletionCount"`
	FilePath      string `json:"filePath"`
}

const cloneColumns = `globalId, revision, pcId, classId, startLine, endLine, additionCount, deletionCount, filePath`

// ReplaceClones discards every stored clone and writes rows in their place,
// in one transaction. A failed write leaves the previous table intact.
func (s *Store) ReplaceClones(rows []CloneRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace clones: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM clones`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear clones: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO clones (` + cloneColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert clone: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.GlobalID, r.Revision, r.PCID, r.ClassID,
			r.StartLine, r.EndLine, r.AdditionCount, r.DeletionCount, r.FilePath,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert clone %d@%d: %w", r.GlobalID, r.Revision, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace clones: %w", err)
	}
	return nil
}

// QueryClones returns every stored row ordered by global id, then revision.
func (s *Store) QueryClones() ([]CloneRow, error) {
	rows, err := s.db.Query(`SELECT ` + cloneColumns + ` FROM clones ORDER BY globalId, revision`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClones(rows)
}

// QueryCloneHistory returns the rows of one clone, oldest revision first.
// An unknown id yields no rows.
func (s *Store) QueryCloneHistory(globalID int) ([]CloneRow, error) {
	rows, err := s.db.Query(
		`SELECT `+cloneColumns+` FROM clones WHERE globalId = ? ORDER BY revision`,
		globalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClones(rows)
}

// QueryRevision returns the clones present in revision rev ordered by
// global id.
func (s *Store) QueryRevision(rev int) ([]CloneRow, error) {
	rows, err := s.db.Query(
		`SELECT `+cloneColumns+` FROM clones WHERE revision = ? ORDER BY globalId`,
		rev,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClones(rows)
}

// CloneCount returns the number of stored (clone, revision) rows.
func (s *Store) CloneCount() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM clones").Scan(&count)
	return count, err
}

// GlobalIDCount returns the number of distinct clones.
func (s *Store) GlobalIDCount() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(DISTINCT globalId) FROM clones").Scan(&count)
	return count, err
}

// RevisionBounds returns the lowest and highest revision with clones. ok is
// false when the table is empty.
func (s *Store) RevisionBounds() (lo, hi int, ok bool, err error) {
	var minRev, maxRev sql.NullInt64
	if err := s.db.QueryRow("SELECT MIN(revision), MAX(revision) FROM clones").Scan(&minRev, &maxRev); err != nil {
		return 0, 0, false, err
	}
	if !minRev.Valid {
		return 0, 0, false, nil
	}
	return int(minRev.Int64), int(maxRev.Int64), true, nil
}

func scanClones(rows *sql.Rows) ([]CloneRow, error) {
	var out []CloneRow
	for rows.Next() {
		var r CloneRow
		if err := rows.Scan(
			&r.GlobalID, &r.Revision, &r.PCID, &r.ClassID,
			&r.StartLine, &r.EndLine, &r.AdditionCount, &r.DeletionCount, &r.FilePath,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
