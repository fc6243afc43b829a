// Package sqlite implements the database interface on SQLite through gorm.
package sqlite

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakechorley/helping-hands/pkg/db"
)

// DB provides database operations using a single SQLite file
type DB struct {
	gdb  *gorm.DB
	inTx bool
}

var _ db.Database = (*DB)(nil)

// NewDB opens a SQLite database and runs migrations
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = "helping_hands.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Single connection: SQLite has one writer and transactions must not interleave
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := gdb.AutoMigrate(&userRow{}, &taskRow{}, &pointsRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &DB{gdb: gdb}, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Close closes the underlying connection. It is a no-op on a transaction view.
func (d *DB) Close() {
	if d.inTx {
		return
	}
	if sqlDB, err := d.gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

// WithTx runs fn inside a gorm transaction. Nested calls reuse the open transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx db.Database) error) error {
	if d.inTx {
		return fn(d)
	}
	return d.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{gdb: tx, inTx: true})
	})
}

// atomically runs fn on the open transaction, or on a new one
func (d *DB) atomically(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if d.inTx {
		return fn(d.gdb.WithContext(ctx))
	}
	return d.gdb.WithContext(ctx).Transaction(fn)
}
