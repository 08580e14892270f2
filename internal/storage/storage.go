package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/hailam/xqnnue/internal/nnue"
	"github.com/hailam/xqnnue/internal/samples"
)

// Key prefixes
const (
	prefixShard  = "shard/"
	prefixExport = "export/"
)

// ShardEntry is the cached sample count of one shard file.
type ShardEntry struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time_ns"`
	Samples int64 `json:"samples"`
	Skipped int64 `json:"skipped,omitempty"`
}

// ExportRecord is one entry of the export history.
type ExportRecord struct {
	Time       time.Time     `json:"time"`
	Checkpoint string        `json:"checkpoint,omitempty"`
	Manifest   nnue.Manifest `json:"manifest"`
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB

	// last is the newest export stamp; it keeps history keys unique.
	mu   sync.Mutex
	last int64
}

// Open opens or creates the database in dir. An empty dir uses DatabaseDir.
// A nil logger silences badger.
func Open(dir string, logger *zap.Logger) (*Storage, error) {
	if dir == "" {
		var err error
		if dir, err = DatabaseDir(); err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(dir)
	if logger != nil {
		opts.Logger = badgerLogger{logger.Named("badger").Sugar()}
	} else {
		opts.Logger = nil
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dir, err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func shardKey(path string) []byte {
	return []byte(prefixShard + path)
}

// Lookup returns the cached count for path when size and modTime match the
// stored entry.
func (s *Storage) Lookup(path string, size int64, modTime time.Time) (samples.ShardCount, bool, error) {
	var entry ShardEntry
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(shardKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return samples.ShardCount{}, false, err
	}

	if !found || entry.Size != size || entry.ModTime != modTime.UnixNano() {
		return samples.ShardCount{}, false, nil
	}
	return samples.ShardCount{Samples: entry.Samples, Skipped: entry.Skipped}, true, nil
}

// Store saves the count of path, replacing any earlier entry.
func (s *Storage) Store(path string, size int64, modTime time.Time, count samples.ShardCount) error {
	data, err := json.Marshal(ShardEntry{
		Size:    size,
		ModTime: modTime.UnixNano(),
		Samples: count.Samples,
		Skipped: count.Skipped,
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(shardKey(path), data)
	})
}

// ForgetShards drops every cached shard count.
func (s *Storage) ForgetShards() error {
	return s.db.DropPrefix([]byte(prefixShard))
}

// exportKey orders records by time: the prefix followed by big-endian nanos.
func exportKey(nanos int64) []byte {
	key := make([]byte, len(prefixExport)+8)
	copy(key, prefixExport)
	binary.BigEndian.PutUint64(key[len(prefixExport):], uint64(nanos))
	return key
}

// nextStamp returns a strictly increasing timestamp for t.
func (s *Storage) nextStamp(t time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := t.UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

// RecordExport appends rec to the export history. A zero Time is set to now.
func (s *Storage) RecordExport(rec ExportRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := exportKey(s.nextStamp(rec.Time))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// ExportHistory returns up to limit export records, newest first.
// A limit of zero or less returns all of them.
func (s *Storage) ExportHistory(limit int) ([]ExportRecord, error) {
	var records []ExportRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixExport)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key with the prefix.
		seek := append([]byte(prefixExport), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec ExportRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// LastExport returns the most recent export record, or nil if none exists.
func (s *Storage) LastExport() (*ExportRecord, error) {
	records, err := s.ExportHistory(1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// badgerLogger routes badger's log output through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
