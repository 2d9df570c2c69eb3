// Package badger implements history.Store on top of BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/scott-wilson/publish/pkg/history"
)

// Key prefixes
const (
	// Primary key: run:{runID} -> JSON(history.Record)
	prefixRun = "run:"

	// Index by start time: idx:{reverseNanos}:{runID} -> runID
	//
	// reverseNanos is math.MaxInt64 minus the start time in nanoseconds,
	// zero-padded so that forward iteration yields the newest run first.
	prefixByStart = "idx:"
)

// Options configures the store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory only.
	InMemory bool
}

// Store is a BadgerDB-backed history.Store.
//
// Storage Model:
//   - Primary storage: run:{runID} -> JSON(history.Record)
//   - Secondary index: idx:{reverseNanos}:{runID} -> runID
//
// Thread Safety:
// All operations use BadgerDB transactions.
type Store struct {
	db *badgerdb.DB
}

var _ history.Store = (*Store)(nil)

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	var bopts badgerdb.Options
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("history path is required")
		}
		bopts = badgerdb.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database at %s: %w", opts.Path, err)
	}
	return &Store{db: db}, nil
}

func runKey(id string) []byte {
	return []byte(prefixRun + id)
}

func indexKey(rec history.Record) []byte {
	nanos := rec.StartedAt.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return fmt.Appendf(nil, "%s%019d:%s", prefixByStart, math.MaxInt64-nanos, rec.ID)
}

// Put stores rec, replacing any record with the same id.
func (s *Store) Put(ctx context.Context, rec history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("run id is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		// Drop the index entry of a previous record with the same id; its
		// start time may differ.
		if prev, err := getTx(txn, rec.ID); err == nil {
			if err := txn.Delete(indexKey(prev)); err != nil {
				return err
			}
		} else if err != history.ErrNotFound {
			return err
		}

		if err := txn.Set(runKey(rec.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(rec), []byte(rec.ID))
	})
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (history.Record, error) {
	if err := ctx.Err(); err != nil {
		return history.Record{}, err
	}

	var rec history.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		rec, err = getTx(txn, id)
		return err
	})
	return rec, err
}

func getTx(txn *badgerdb.Txn, id string) (history.Record, error) {
	var rec history.Record
	item, err := txn.Get(runKey(id))
	if err == badgerdb.ErrKeyNotFound {
		return rec, history.ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return rec, fmt.Errorf("failed to unmarshal run record %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []history.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixByStart)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(records) >= limit {
				break
			}

			idBytes, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			id := string(idBytes)

			rec, err := getTx(txn, id)
			if err == history.ErrNotFound {
				// Stale index entry.
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
