// Package checkpoint is the optional, off-by-default resume ledger
// (-resumeDB): a bbolt database recording the global token count once
// per lrUpdateRate merge so a killed run can report how far it got.
// It never changes persisted model output (spec §6's .bin/.vec/
// .theta/.attn/.bias files are the only model artifacts); this is
// operational breadcrumbing only.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var progressBucket = []byte("Progress")

// Ledger wraps a bbolt database recording training progress.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the resume ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(progressBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: creating bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// RecordProgress writes the current global token count under the
// given worker/run key, overwriting any prior value.
func (l *Ledger) RecordProgress(key string, tokenCount int64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(tokenCount))
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(progressBucket)
		return b.Put([]byte(key), buf)
	})
}

// LastProgress returns the token count last recorded under key, or
// (0, false) if no record exists (a fresh run).
func (l *Ledger) LastProgress(key string) (int64, bool) {
	var count int64
	var found bool
	l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(progressBucket)
		v := b.Get([]byte(key))
		if v != nil && len(v) == 8 {
			count = int64(binary.LittleEndian.Uint64(v))
			found = true
		}
		return nil
	})
	return count, found
}
