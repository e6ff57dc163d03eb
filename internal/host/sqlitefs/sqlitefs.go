// Package sqlitefs persists the virtual filesystem in a single SQLite
// database, so scripts keep their files across host restarts.
package sqlitefs

import (
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path   TEXT PRIMARY KEY,
	is_dir INTEGER NOT NULL DEFAULT 0,
	body   TEXT NOT NULL DEFAULT '',
	mtime  INTEGER NOT NULL
);
`

type FS struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and ensures
// the schema and the root directory exist.
func Open(dbPath string) (*FS, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO files (path, is_dir, mtime) VALUES ('/', 1, ?)`,
		time.Now().Unix(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed root: %w", err)
	}
	return &FS{db: db}, nil
}

func (f *FS) Close() error { return f.db.Close() }

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (f *FS) Read(p string) (string, error) {
	p = normalize(p)
	var body string
	var isDir bool
	err := f.db.QueryRow(`SELECT body, is_dir FROM files WHERE path = ?`, p).Scan(&body, &isDir)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("file not found: %s", p)
	}
	if err != nil {
		return "", err
	}
	if isDir {
		return "", fmt.Errorf("is a directory: %s", p)
	}
	return body, nil
}

func (f *FS) Write(p string, content string) error {
	p = normalize(p)
	var isDir bool
	err := f.db.QueryRow(`SELECT is_dir FROM files WHERE path = ?`, p).Scan(&isDir)
	if err == nil && isDir {
		return fmt.Errorf("is a directory: %s", p)
	}
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err := f.mkdirAll(path.Dir(p)); err != nil {
		return err
	}
	_, err = f.db.Exec(
		`INSERT INTO files (path, is_dir, body, mtime) VALUES (?, 0, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET body = excluded.body, mtime = excluded.mtime`,
		p, content, time.Now().Unix(),
	)
	return err
}

func (f *FS) Delete(p string) error {
	p = normalize(p)
	if p == "/" {
		return fmt.Errorf("cannot delete the root directory")
	}
	res, err := f.db.Exec(
		`DELETE FROM files WHERE path = ? OR path LIKE ?`, p, p+"/%")
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file not found: %s", p)
	}
	return nil
}

func (f *FS) MkDir(p string) error {
	p = normalize(p)
	var isDir bool
	err := f.db.QueryRow(`SELECT is_dir FROM files WHERE path = ?`, p).Scan(&isDir)
	if err == nil && !isDir {
		return fmt.Errorf("file exists: %s", p)
	}
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	return f.mkdirAll(p)
}

func (f *FS) mkdirAll(p string) error {
	for {
		_, err := f.db.Exec(
			`INSERT OR IGNORE INTO files (path, is_dir, mtime) VALUES (?, 1, ?)`,
			p, time.Now().Unix())
		if err != nil {
			return err
		}
		if p == "/" {
			return nil
		}
		p = path.Dir(p)
	}
}

func (f *FS) Exists(p string) (bool, error) {
	p = normalize(p)
	var one int
	err := f.db.QueryRow(`SELECT 1 FROM files WHERE path = ?`, p).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *FS) List(p string) ([]string, error) {
	p = normalize(p)
	var isDir bool
	err := f.db.QueryRow(`SELECT is_dir FROM files WHERE path = ?`, p).Scan(&isDir)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("directory not found: %s", p)
	}
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fmt.Errorf("not a directory: %s", p)
	}

	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	rows, err := f.db.Query(
		`SELECT path FROM files WHERE path LIKE ? AND path != ? ORDER BY path`,
		prefix+"%", p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	var names []string
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(full, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" && !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	return names, rows.Err()
}
