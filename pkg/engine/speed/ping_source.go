package speed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"lintang/trafficspeed/pkg/datastructure"
)

// PingSource satu file ping untuk satu kendaraan satu hari.
type PingSource interface {
	Name() string
	ReadPings() ([]datastructure.Ping, error)
}

// ColumnLayout posisi kolom (0-based) di file csv ping.
type ColumnLayout struct {
	Route     int
	Lat       int
	Lon       int
	Timestamp int
	Comma     rune
	HasHeader bool
	Location  *time.Location
}

// DefaultColumnLayout layout feed gps bus: route id kolom 1, lat 7, lon 8, waktu 10.
func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		Route:     1,
		Lat:       7,
		Lon:       8,
		Timestamp: 10,
		Comma:     ',',
		Location:  time.Local,
	}
}

type CSVPingFile struct {
	Path   string
	Layout ColumnLayout
}

func (f CSVPingFile) Name() string {
	return filepath.Base(f.Path)
}

// ReadPings parses every row. Rows with missing columns or unparsable values are skipped.
func (f CSVPingFile) ReadPings() ([]datastructure.Ping, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParsePings(file, f.Name(), f.Layout)
}

func ParsePings(r io.Reader, vehicleID string, layout ColumnLayout) ([]datastructure.Ping, error) {
	reader := csv.NewReader(r)
	if layout.Comma != 0 {
		reader.Comma = layout.Comma
	}
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	maxCol := max(layout.Route, layout.Lat, layout.Lon, layout.Timestamp)
	pings := []datastructure.Ping{}
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}
		if first && layout.HasHeader {
			first = false
			continue
		}
		first = false
		if len(rec) <= maxCol {
			continue
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[layout.Lat]), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[layout.Lon]), 64)
		if err != nil {
			continue
		}
		sec, err := ParseSecondOfDay(rec[layout.Timestamp], layout.Location)
		if err != nil {
			continue
		}
		pings = append(pings, datastructure.Ping{
			VehicleID:   vehicleID,
			RouteID:     strings.TrimSpace(rec[layout.Route]),
			Lat:         lat,
			Lon:         lon,
			SecondOfDay: sec,
		})
	}
	return pings, nil
}

// ParseSecondOfDay menerima "2006-01-02 15:04:05", "15:04:05", atau unix timestamp (detik).
func ParseSecondOfDay(s string, loc *time.Location) (int, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(ts, 0).In(loc)
		return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
	}
	for _, layout := range []string{time.DateTime, time.TimeOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", s)
}

// DirPingSources satu source per file csv di dir, urut nama file.
func DirPingSources(dir string, layout ColumnLayout) ([]PingSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sources := make([]PingSource, 0, len(names))
	for _, name := range names {
		sources = append(sources, CSVPingFile{Path: filepath.Join(dir, name), Layout: layout})
	}
	return sources, nil
}

// SlicePingSource in-memory source.
type SlicePingSource struct {
	ID    string
	Pings []datastructure.Ping
}

func (s SlicePingSource) Name() string {
	return s.ID
}

func (s SlicePingSource) ReadPings() ([]datastructure.Ping, error) {
	out := make([]datastructure.Ping, len(s.Pings))
	copy(out, s.Pings)
	return out, nil
}
