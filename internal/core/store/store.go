// Package store wraps BadgerDB (github.com/dgraph-io/badger/v4) — an
// embedded, memory-mapped key-value engine — behind the narrow contract
// spec.md §4.A asks for: named sub-stores, ACID multi-key transactions, and
// prefix range scans. Grounded on the transaction-wrapper idiom in
// jinterlante1206-AleutianLocal/services/trace/storage/badger (WithTxn /
// WithReadTxn) and services/trace/agent/mcts/crs/journal.go (prefix
// iteration, zero-padded sequence keys).
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/secemp9/jari/internal/core/model"
)

// Sub-stores are namespaced by key prefix rather than by Badger bucket
// (Badger, unlike bbolt, has a single flat keyspace) — this matches the
// key encodings spec.md §4.B already specifies as "{substore}/{rest}".
const (
	SubTodos    = "todos"
	SubHistory  = "history"
	SubPending  = "pending"
	SubMeta     = "meta"
)

// Store opens and owns a Badger database. Writers are serialized with an
// explicit mutex on top of Badger's own optimistic transactions: spec.md
// §5 specifies single-writer, multi-reader operation, and taking the lock
// up front means two concurrent write transactions never need to retry
// against each other's Commit.
type Store struct {
	db       *badger.DB
	writerMu sync.Mutex
}

// badgerLogger adapts zerolog to Badger's Logger interface, silencing
// Badger's own noisy default logger in favor of the ambient logging stack.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}
func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}
func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}
func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Options configures Open.
type Options struct {
	// Path is the directory holding the database files. Required unless
	// InMemory is set.
	Path string
	// InMemory opens a throwaway, non-persistent database — used by tests.
	InMemory bool
	// SyncWrites forces every commit to fsync before returning.
	SyncWrites bool
	Logger     zerolog.Logger
}

// Open opens (creating if necessary) a Badger database per opts.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("store: path is required for a persistent database")
		}
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}

	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithLogger(badgerLogger{logger: opts.Logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, classifyOpenErr(err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory is a convenience wrapper for tests: an in-memory database
// needs no cleanup and never touches disk.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

// DefaultDataDir returns the fixed per-user location spec.md §6 describes
// when $JARI_DB is unset.
func DefaultDataDir() string {
	if dir := os.Getenv("JARI_DB"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".jari")
	}
	return filepath.Join(home, ".local", "share", "jari")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunValueLogGC reclaims space in Badger's value log files below
// discardRatio, per config's gc_ratio tunable. badger.ErrNoRewrite (no
// file was worth rewriting this pass) is not an error worth surfacing.
func (s *Store) RunValueLogGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return err
	}
	return nil
}

// StartGC runs RunValueLogGC on a ticker until the returned func is
// called. interval and discardRatio come from config's gc_interval and
// gc_ratio; a zero interval disables the loop entirely.
func (s *Store) StartGC(interval time.Duration, discardRatio float64, logger zerolog.Logger) func() {
	if interval <= 0 {
		return func() {}
	}
	stop := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.RunValueLogGC(discardRatio); err != nil {
					logger.Warn().Err(err).Msg("value log gc failed")
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}

func classifyOpenErr(err error) error {
	if err == nil {
		return nil
	}
	if isDiskFullErr(err) {
		return fmt.Errorf("%w: %v", model.ErrStorageFull, err)
	}
	return fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
}

// isDiskFullErr recognizes the handful of ways Badger surfaces "no space
// left on device" — there is no exported sentinel for it, only the wrapped
// syscall error text, matching the classification style of the teacher's
// stores.IsCorruptionError.
func isDiskFullErr(err error) bool {
	return strings.Contains(err.Error(), "no space left on device")
}
