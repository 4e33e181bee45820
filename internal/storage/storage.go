// Package storage owns the shared SQLite handle and the on-disk file naming
// convention for capture databases.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultDir is where generated capture databases live when no explicit
// path is supplied.
const DefaultDir = "logs"

// fileSuffix is the naming convention for generated capture databases.
const fileSuffix = "-logparsely.db"

// ErrLock is returned when the shared connection cannot be acquired before
// the caller's context expires.
var ErrLock = errors.New("shared connection unavailable")

// Conn is the single database handle shared by all ingestion goroutines.
// Every access goes through Acquire so no caller can hold an unguarded
// reference across blocking points.
type Conn struct {
	db  *sql.DB
	sem chan struct{}
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Conn, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	if dir := filepath.Dir(p); dir != "." && p != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")
	return &Conn{db: db, sem: make(chan struct{}, 1)}, nil
}

// Acquire takes exclusive use of the underlying handle. The returned release
// function must be called when done. Returns ErrLock when ctx expires first.
func (c *Conn) Acquire(ctx context.Context) (*sql.DB, func(), error) {
	select {
	case c.sem <- struct{}{}:
		return c.db, func() { <-c.sem }, nil
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%w: %v", ErrLock, ctx.Err())
	}
}

func (c *Conn) Close() error { return c.db.Close() }

// DefaultPath returns a fresh generated database path under dir,
// e.g. logs/8c6b…-logparsely.db.
func DefaultPath(dir string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, uuid.New().String()+fileSuffix)
}

// Purge removes previously generated capture databases under dir. Only files
// matching the generated naming convention are touched; explicit user-chosen
// paths are never deleted. Returns the number of files removed.
func Purge(dir string) (int, error) {
	if dir == "" {
		dir = DefaultDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read directory %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			slog.Error("failed to delete capture database", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
