// Package gormstore provides a GORM-backed implementation of the
// storage.Storage interface.
//
// WHICH DATABASES?
// ────────────────
// Two dialects are supported:
//
//   - SQLite through gorm.io/driver/sqlite, which wraps mattn/go-sqlite3.
//     Everything lives in a single file (or in memory for tests).
//   - PostgreSQL through gorm.io/driver/postgres, which wraps pgx.
//
// The driver is picked from config at startup; nothing above this package
// knows which one is in use.
//
// TRANSACTIONS
// ────────────
// Every single-statement call runs in GORM's default implicit transaction
// and commits when the call returns. Multi-step work (read then write)
// goes through Transaction so both steps see the same snapshot.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// slowQueryThreshold is the duration above which a statement is logged
// as a warning.
const slowQueryThreshold = 200 * time.Millisecond

// Store is the GORM-backed student repository.
// db is either the connection pool or, inside Transaction, a handle bound
// to one open transaction. Both are safe for use from a single request.
type Store struct {
	db *gorm.DB
}

// ─────────────────────────────────────────────────────────────────────────────
// Open connects to the configured database and migrates the students table.
//
// cfg.Driver selects the dialect ("sqlite" or "postgres"), cfg.DSN is
// passed to it unchanged. GORM's own logging is routed into log.
// ─────────────────────────────────────────────────────────────────────────────
func Open(cfg config.Database, log zerolog.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log, cfg.LogQueries)})
	if err != nil {
		return nil, fmt.Errorf("gormstore.Open: connect %s: %w", cfg.Driver, err)
	}

	return New(db)
}

// New wraps an existing connection and migrates the students table.
//
// AutoMigrate is idempotent, like CREATE TABLE IF NOT EXISTS: running it
// on every startup only adds what is missing.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&types.Student{}); err != nil {
		return nil, fmt.Errorf("gormstore.New: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	if cfg.DSN == "" {
		return nil, errors.New("gormstore: dsn must not be empty")
	}

	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("gormstore: unsupported driver %q", cfg.Driver)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Save inserts or updates a student.
//
//	ID == 0  → INSERT; the generated primary key is written to student.ID
//	ID != 0  → UPDATE students SET name, age, email WHERE id = ?
//
// The update writes all three columns, so nil fields become NULL. When the
// UPDATE matches no row, Save returns storage.ErrNotFound instead of
// inserting, so a concurrent delete is never undone.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) Save(ctx context.Context, student *types.Student) error {
	if student.ID == 0 {
		if err := s.db.WithContext(ctx).Create(student).Error; err != nil {
			return fmt.Errorf("Save: insert: %w", err)
		}
		return nil
	}

	result := s.db.WithContext(ctx).
		Model(&types.Student{}).
		Where("id = ?", student.ID).
		Updates(map[string]interface{}{
			"name":  student.Name,
			"age":   student.Age,
			"email": student.Email,
		})
	if result.Error != nil {
		return fmt.Errorf("Save: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// FindByID fetches one student by primary key.
// gorm.ErrRecordNotFound is translated into found == false.
func (s *Store) FindByID(ctx context.Context, id uint) (types.Student, bool, error) {
	var student types.Student
	err := s.db.WithContext(ctx).First(&student, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Student{}, false, nil
	}
	if err != nil {
		return types.Student{}, false, fmt.Errorf("FindByID: %w", err)
	}

	return student, true, nil
}

// FindAll returns all students ordered by id.
// The slice is pre-allocated so an empty table encodes as [] not null.
func (s *Store) FindAll(ctx context.Context) ([]types.Student, error) {
	students := make([]types.Student, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&students).Error; err != nil {
		return nil, fmt.Errorf("FindAll: %w", err)
	}

	return students, nil
}

// DeleteByID removes a student by primary key. Zero affected rows is fine.
func (s *Store) DeleteByID(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&types.Student{}, id).Error; err != nil {
		return fmt.Errorf("DeleteByID: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction runs fn inside one database transaction.
//
// fn receives a *Store bound to the transaction; every call made through
// it is part of the same BEGIN ... COMMIT. Returning an error (or
// panicking) rolls everything back. Nested calls use savepoints.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping checks that the database is reachable. It backs GET /healthz.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Ping: %w", err)
	}

	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	return sqlDB.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// gormLogger implements gormlogger.Interface on top of zerolog so GORM's
// messages keep their severity:
//
//	failed statement  → error
//	slow statement    → warn
//	every statement   → debug (only with database.log_queries)
//
// A missing row is not logged: FindByID reports it as found == false.
// ─────────────────────────────────────────────────────────────────────────────
type gormLogger struct {
	log   zerolog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log zerolog.Logger, logQueries bool) gormlogger.Interface {
	level := gormlogger.Warn
	if logQueries {
		level = gormlogger.Info
	}

	return &gormLogger{
		log:   log.With().Str("component", "gorm").Logger(),
		level: level,
		slow:  slowQueryThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info().Msgf(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn().Msgf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error().Msgf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query failed")
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Dur("threshold", l.slow).Msg("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}
