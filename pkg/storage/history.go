package storage

import (
	"errors"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/kv"
)

type MatrixStore interface {
	SaveSpeedMatrix(m *datastructure.SpeedMatrix) error
	LoadSpeedMatrix(day string, intervalMinutes int) (*datastructure.SpeedMatrix, error)
}

// ChainedMatrixStore load dari store pertama yang punya data (kv dulu, baru csv). Save ke semua store.
type ChainedMatrixStore struct {
	stores []MatrixStore
}

func NewChainedMatrixStore(stores ...MatrixStore) *ChainedMatrixStore {
	return &ChainedMatrixStore{stores: stores}
}

func (c *ChainedMatrixStore) LoadSpeedMatrix(day string, intervalMinutes int) (*datastructure.SpeedMatrix, error) {
	var lastErr error = ErrMatrixNotFound
	for _, s := range c.stores {
		m, err := s.LoadSpeedMatrix(day, intervalMinutes)
		if err == nil {
			return m, nil
		}
		if isNotFound(err) {
			continue
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *ChainedMatrixStore) SaveSpeedMatrix(m *datastructure.SpeedMatrix) error {
	var errs []error
	for _, s := range c.stores {
		if err := s.SaveSpeedMatrix(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrMatrixNotFound) || errors.Is(err, kv.ErrNotFound)
}

// IsNotFound true kalau error berarti data hari itu memang tidak ada.
func IsNotFound(err error) bool {
	return isNotFound(err)
}
