// Package audit persists login and transfer outcomes to a SQLite
// database. It implements the engine's Recorder interface, so wiring it
// up is optional: the engine runs fine without one.
package audit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/telebroad/ftpengine/ftp"
)

var _ ftp.Recorder = (*Store)(nil)

// LoginRecord is one USER/PASS outcome.
type LoginRecord struct {
	gorm.Model
	Username  string
	Succeeded bool
}

// TransferRecord is one completed, failed or aborted data transfer.
type TransferRecord struct {
	gorm.Model
	Verb       string
	Path       string
	Bytes      int64
	DurationMS int64
	Succeeded  bool
}

// Store records engine events in SQLite through gorm.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates the
// record tables.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening audit database: %w", err)
	}
	if err := db.AutoMigrate(&LoginRecord{}, &TransferRecord{}); err != nil {
		return nil, fmt.Errorf("error migrating audit tables: %w", err)
	}
	return &Store{db: db, logger: slog.Default()}, nil
}

// SetLogger replaces the store logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Store) RecordLogin(username string, ok bool) {
	rec := LoginRecord{Username: username, Succeeded: ok}
	if err := s.db.Create(&rec).Error; err != nil {
		s.logger.Error("recording login", "username", username, "error", err)
	}
}

func (s *Store) RecordTransfer(verb ftp.Command, path string, bytes int64, elapsed time.Duration, ok bool) {
	rec := TransferRecord{
		Verb:       string(verb),
		Path:       path,
		Bytes:      bytes,
		DurationMS: elapsed.Milliseconds(),
		Succeeded:  ok,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		s.logger.Error("recording transfer", "verb", verb, "path", path, "error", err)
	}
}

// Logins returns all recorded login attempts, newest first.
func (s *Store) Logins() ([]LoginRecord, error) {
	var records []LoginRecord
	if err := s.db.Order("id desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error querying logins: %w", err)
	}
	return records, nil
}

// Transfers returns all recorded transfers, newest first.
func (s *Store) Transfers() ([]TransferRecord, error) {
	var records []TransferRecord
	if err := s.db.Order("id desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error querying transfers: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
