package kv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

var ErrNotFound = errors.New("key not found")

type KVDB struct {
	db *pebble.DB
}

func NewKVDB(db *pebble.DB) *KVDB {
	return &KVDB{db}
}

// Open buka pebble db di path.
func Open(path string, opts *pebble.Options) (*KVDB, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	return NewKVDB(db), nil
}

func (k *KVDB) set(key string, val []byte) error {
	return k.db.Set([]byte(key), val, pebble.Sync)
}

// get returns a copy of the value, pebble only guarantees the slice until closer.Close.
func (k *KVDB) get(key string) ([]byte, error) {
	val, closer, err := k.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
