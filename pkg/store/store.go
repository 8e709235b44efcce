// Package store keeps the node server's custom parameters and last report
// in a local bbolt file so they survive restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

const (
	bucket    = "sunpos"
	paramsKey = "params"
	reportKey = "report"
)

// ErrNotFound is returned when nothing has been saved under a key yet.
var ErrNotFound = errors.New("key not found")

// Store is a bbolt backed key value store.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveParams(params map[string]string) error {
	return s.putJSON(paramsKey, params)
}

func (s *Store) LoadParams() (map[string]string, error) {
	var params map[string]string
	if err := s.getJSON(paramsKey, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func (s *Store) SaveReport(r tracker.Report) error {
	return s.putJSON(reportKey, r)
}

func (s *Store) LoadReport() (tracker.Report, error) {
	var r tracker.Report
	err := s.getJSON(reportKey, &r)
	return r, err
}

func (s *Store) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *Store) getJSON(key string, v any) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		return nil
	})
}
