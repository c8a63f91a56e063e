package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 2

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One row per (clone, revision) pair. Column names match the layout
-- downstream analysis scripts already query.
CREATE TABLE IF NOT EXISTS clones (
	globalId      INTEGER NOT NULL,
	revision      INTEGER NOT NULL,
	pcId          INTEGER NOT NULL,
	classId       INTEGER NOT NULL,
	startLine     INTEGER NOT NULL,
	endLine       INTEGER NOT NULL,
	additionCount INTEGER NOT NULL DEFAULT 0,
	deletionCount INTEGER NOT NULL DEFAULT 0,
	filePath      TEXT    NOT NULL,
	PRIMARY KEY (globalId, revision)
);

CREATE INDEX IF NOT EXISTS idx_clones_revision ON clones(revision);
CREATE INDEX IF NOT EXISTS idx_clones_file ON clones(filePath);

-- Key-value store for run metadata (schema version, run parameters).
CREATE TABLE IF NOT EXISTS run_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`,

	2: `
-- Revision number to commit hash, oldest commit first.
CREATE TABLE IF NOT EXISTS revisions (
	revision    INTEGER PRIMARY KEY,
	commit_hash TEXT    NOT NULL
);
`,
}
