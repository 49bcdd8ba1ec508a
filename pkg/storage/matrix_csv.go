package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/util"
)

var ErrMatrixNotFound = errors.New("speed matrix not found")

const roadIDHeader = "Road ID"

// CSVMatrixStore speed matrix per hari di {dir}/{day}/result/{day}_{interval}_min_road.csv.
type CSVMatrixStore struct {
	dir string
}

func NewCSVMatrixStore(dir string) *CSVMatrixStore {
	return &CSVMatrixStore{dir: dir}
}

func (s *CSVMatrixStore) Path(day string, intervalMinutes int) string {
	return filepath.Join(s.dir, day, "result", fmt.Sprintf("%s_%d_min_road.csv", day, intervalMinutes))
}

func (s *CSVMatrixStore) SaveSpeedMatrix(m *datastructure.SpeedMatrix) error {
	path := s.Path(m.Day, m.IntervalMinutes)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	maxIndex := m.MaxIndex()

	header := make([]string, 0, maxIndex+1)
	header = append(header, roadIDHeader)
	for bin := 0; bin < maxIndex; bin++ {
		header = append(header, util.TimeRangeLabel(bin, m.IntervalMinutes))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	row := make([]string, maxIndex+1)
	for _, id := range m.SegmentIDs() {
		row[0] = strconv.FormatInt(id, 10)
		for bin, v := range m.Speeds[id] {
			row[bin+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *CSVMatrixStore) LoadSpeedMatrix(day string, intervalMinutes int) (*datastructure.SpeedMatrix, error) {
	path := s.Path(day, intervalMinutes)
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrMatrixNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := datastructure.NewSpeedMatrix(day, intervalMinutes)
	maxIndex := m.MaxIndex()
	if len(records) == 0 || len(records[0]) != maxIndex+1 {
		return nil, fmt.Errorf("%s: header does not have %d bins", path, maxIndex)
	}
	for _, rec := range records[1:] {
		if len(rec) != maxIndex+1 {
			return nil, fmt.Errorf("%s: row %q has %d columns", path, rec[0], len(rec))
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad road id %q", path, rec[0])
		}
		row := m.Row(id)
		for bin := 0; bin < maxIndex; bin++ {
			v, err := strconv.ParseFloat(rec[bin+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad speed for road %d bin %d", path, id, bin)
			}
			row[bin] = v
		}
	}
	return m, nil
}
