// Package store keeps a bounded history of telemetry snapshots in BoltDB.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RoverBridge/internal/model"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var bucketTelemetry = []byte("telemetry")

// ErrEmpty is returned by Latest when nothing has been recorded yet.
var ErrEmpty = errors.New("no telemetry recorded")

// Record is one stored snapshot.
type Record struct {
	ID         string                  `json:"id"`
	ReceivedAt time.Time               `json:"received_at"`
	Snapshot   model.TelemetrySnapshot `json:"snapshot"`
}

// TelemetryStore appends snapshots under monotonically increasing keys and
// trims the oldest entries beyond limit.
type TelemetryStore struct {
	db    *bbolt.DB
	limit int
	now   func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string, limit int) (*TelemetryStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[store] create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[store] open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTelemetry)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[store] init bucket: %w", err)
	}
	return &TelemetryStore{db: db, limit: limit, now: time.Now}, nil
}

// Append stores s and enforces the history limit.
func (s *TelemetryStore) Append(snap model.TelemetrySnapshot) error {
	rec := Record{ID: uuid.NewString(), ReceivedAt: s.now().UTC(), Snapshot: snap}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTelemetry)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), body); err != nil {
			return err
		}
		if s.limit <= 0 {
			return nil
		}
		c := b.Cursor()
		excess := -s.limit
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			excess++
		}
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// Latest returns the most recent record or ErrEmpty.
func (s *TelemetryStore) Latest() (Record, error) {
	recs, err := s.History(1)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrEmpty
	}
	return recs[0], nil
}

// History returns up to n records, newest first.
func (s *TelemetryStore) History(n int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTelemetry).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// Close closes the database.
func (s *TelemetryStore) Close() error { return s.db.Close() }

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
