// Package store is the hostdash persistence layer.
// It wraps GORM over SQLite and holds the monitored hosts, their time-series
// samples and the dashboard user accounts.
package store

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vesaa/hostdash/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a host or user lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Store is safe for concurrent use by the recorder and request handlers.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens the database and runs AutoMigrate.
// path may be ":memory:" for an ephemeral database.
func Open(driver, path string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(withPragmas(path))
	default:
		return nil, fmt.Errorf("unsupported db_driver %q (use 'sqlite')", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// EnsureHost looks hosts up with First, so a miss is routine.
		Logger: logger.New(log.Default(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	// One connection serializes recorder appends with request reads, and keeps
	// a ":memory:" database from splitting into one database per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Host{}, &models.Sample{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Printf("[db] opened %s/%s", driverName(driver), path)
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
