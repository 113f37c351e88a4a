// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLitePath extracts the database file path from a SQLite DSN such as
// "eventhub.db" or "file:data/eventhub.db?_pragma=busy_timeout(5000)".
// In-memory DSNs yield "".
func SQLitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	p, _, _ = strings.Cut(p, "?")
	if p == "" || p == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return p
}

// EnsureParentDir creates the directory that will hold the SQLite database
// named by dsn. It is a no-op for in-memory databases and bare file names.
func EnsureParentDir(dsn string) error {
	p := SQLitePath(dsn)
	if p == "" {
		return nil
	}

	dir := filepath.Dir(p)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
