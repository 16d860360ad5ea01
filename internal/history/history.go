// Package history keeps the SQLite-backed list of recently opened documents.
//
// Only paths, titles and checksums are stored; buffer contents never outlive
// the process.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/inkwell/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recent_documents (
	path      TEXT PRIMARY KEY,
	title     TEXT NOT NULL DEFAULT '',
	checksum  TEXT NOT NULL DEFAULT '',
	opened_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recent_opened_at ON recent_documents(opened_at);
`

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 20

// DB wraps a sql.DB with recent-document operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_cslike=1")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Touch records that doc was opened or saved, moving it to the top.
func (db *DB) Touch(doc models.RecentDocument) error {
	if doc.OpenedAt.IsZero() {
		doc.OpenedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO recent_documents (path, title, checksum, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title     = excluded.title,
			checksum  = excluded.checksum,
			opened_at = excluded.opened_at
	`, doc.Path, doc.Title, doc.Checksum, doc.OpenedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: touch: %w", err)
	}
	return nil
}

// Recent returns the most recently opened documents, newest first.
func (db *DB) Recent(limit int) ([]models.RecentDocument, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, opened_at
		FROM recent_documents
		ORDER BY opened_at DESC, path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	out := []models.RecentDocument{}
	for rows.Next() {
		var d models.RecentDocument
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.OpenedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Forget removes path, and everything below it when isDir is set.
func (db *DB) Forget(path string, isDir bool) error {
	var err error
	if isDir {
		_, err = db.conn.Exec(`DELETE FROM recent_documents WHERE path = ? OR path LIKE ? ESCAPE '\'`,
			path, likePrefix(path))
	} else {
		_, err = db.conn.Exec(`DELETE FROM recent_documents WHERE path = ?`, path)
	}
	if err != nil {
		return fmt.Errorf("history: forget: %w", err)
	}
	return nil
}

// Move rewrites oldPath (and, for folders, every path below it) to newPath.
func (db *DB) Move(oldPath, newPath string) error {
	_, err := db.conn.Exec(`
		UPDATE OR REPLACE recent_documents
		SET path = ? || substr(path, length(?) + 1)
		WHERE path = ? OR path LIKE ? ESCAPE '\'
	`, newPath, oldPath, oldPath, likePrefix(oldPath))
	if err != nil {
		return fmt.Errorf("history: move: %w", err)
	}
	return nil
}

// likePrefix returns a LIKE pattern matching every path below dir.
func likePrefix(dir string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.TrimSuffix(dir, string(os.PathSeparator))) + string(os.PathSeparator) + "%"
}
