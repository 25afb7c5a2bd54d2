package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/chatline/internal/metrics"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection holding chats and messages.
type DB struct {
	*sql.DB
}

// Open creates a SQLite connection with WAL mode and recommended pragmas.
// Write transactions begin IMMEDIATE so concurrent writers queue on the
// busy timeout instead of failing on lock upgrade.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}

// observe records the latency of a store operation. Use as defer observe("op")().
func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
