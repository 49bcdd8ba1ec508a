package datastructure

import (
	"sort"
	"time"
)

const (
	MinutesPerDay = 1440

	// DayLayout format tanggal untuk nama file dan key kv.
	DayLayout = "20060102"
)

func DayID(t time.Time) string {
	return t.Format(DayLayout)
}

func SecondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func MaxIndex(intervalMinutes int) int {
	return MinutesPerDay / intervalMinutes
}

func BinIndex(secondOfDay, intervalMinutes int) int {
	return secondOfDay / (intervalMinutes * 60)
}

// SpeedMatrix kecepatan rata-rata per segment per time bin untuk satu hari. 0 = tidak ada data.
type SpeedMatrix struct {
	Day             string
	IntervalMinutes int
	Speeds          map[int64][]float64
}

func NewSpeedMatrix(day string, intervalMinutes int) *SpeedMatrix {
	return &SpeedMatrix{
		Day:             day,
		IntervalMinutes: intervalMinutes,
		Speeds:          make(map[int64][]float64),
	}
}

func (m *SpeedMatrix) MaxIndex() int {
	return MaxIndex(m.IntervalMinutes)
}

// Row returns the bins of a segment, allocating a zero row on first use.
func (m *SpeedMatrix) Row(segmentID int64) []float64 {
	row, ok := m.Speeds[segmentID]
	if !ok {
		row = make([]float64, m.MaxIndex())
		m.Speeds[segmentID] = row
	}
	return row
}

func (m *SpeedMatrix) Set(segmentID int64, bin int, speed float64) {
	m.Row(segmentID)[bin] = speed
}

func (m *SpeedMatrix) Get(segmentID int64, bin int) (float64, bool) {
	row, ok := m.Speeds[segmentID]
	if !ok || bin < 0 || bin >= len(row) {
		return 0, false
	}
	return row[bin], true
}

func (m *SpeedMatrix) Has(segmentID int64) bool {
	_, ok := m.Speeds[segmentID]
	return ok
}

func (m *SpeedMatrix) SegmentIDs() []int64 {
	ids := make([]int64, 0, len(m.Speeds))
	for id := range m.Speeds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
