// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/safeloop/internal/metrics"
)

// ErrNotFound is returned when a report ID is unknown.
var ErrNotFound = errors.New("report not found")

// Key prefixes for BadgerDB storage
const (
	reportKeyPrefix   = "report:"
	reportIDKeyPrefix = "report_id:"
)

// StoreConfig configures the report store.
type StoreConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps reports in memory only.
	InMemory bool

	// Retention is how long reports are kept. Zero keeps them forever.
	Retention time.Duration
}

// Store persists fault reports in BadgerDB, ordered by capture time.
type Store struct {
	db        *badger.DB
	retention time.Duration
	inMemory  bool
}

// OpenStore opens (or creates) a BadgerDB-backed report store.
func OpenStore(cfg StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for reports: %w", err)
	}

	return &Store{db: db, retention: cfg.Retention, inMemory: cfg.InMemory}, nil
}

func timeKey(r *Report) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", reportKeyPrefix, r.Time.UnixNano(), r.ID))
}

// Save stores a report.
func (s *Store) Save(ctx context.Context, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := timeKey(r)
		entry := badger.NewEntry(key, data)
		idEntry := badger.NewEntry([]byte(reportIDKeyPrefix+r.ID), key)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
			idEntry = idEntry.WithTTL(s.retention)
		}

		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set report: %w", err)
		}
		if err := txn.SetEntry(idEntry); err != nil {
			return fmt.Errorf("set report index: %w", err)
		}
		return nil
	})
}

// Get retrieves a report by ID.
func (s *Store) Get(ctx context.Context, id string) (*Report, error) {
	var r Report

	err := s.db.View(func(txn *badger.Txn) error {
		idItem, err := txn.Get([]byte(reportIDKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get report index: %w", err)
		}
		key, err := idItem.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read report index: %w", err)
		}

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Report, error) {
	reports := make([]*Report, 0, limit)
	if limit <= 0 {
		return reports, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(reportKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(reports) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Report
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode report: %w", err)
			}
			reports = append(reports, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Count returns the number of stored reports.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// RunGC reclaims value log space left by expired reports. It runs badger's
// value log GC until nothing more can be rewritten. In-memory stores have no
// value log and return nil.
func (s *Store) RunGC() error {
	if s.inMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run report store GC: %w", err)
		}
	}
}

// Maintain runs RunGC every interval until ctx is done. A GC failure is
// returned so the caller can report it.
func (s *Store) Maintain(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := s.RunGC()
			metrics.RecordReportGC(err)
			if err != nil {
				return err
			}
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
