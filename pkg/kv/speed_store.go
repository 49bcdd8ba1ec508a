package kv

import (
	"fmt"
	"time"

	"lintang/trafficspeed/pkg/datastructure"
)

// speedMatrixRecord matrix disimpan flat, baris ke-i = Speeds[i*MaxIndex:(i+1)*MaxIndex].
type speedMatrixRecord struct {
	Day             string
	IntervalMinutes int
	SegmentIDs      []int64
	Speeds          []float64
}

type predictionRecord struct {
	GeneratedAt     int64
	Target          int64
	IntervalMinutes int
	Bin             int
	SegmentIDs      []int64
	Speeds          []float64
	Ratios          []float64
}

func speedMatrixKey(day string, intervalMinutes int) string {
	return fmt.Sprintf("speed:%d:%s", intervalMinutes, day)
}

func predictionKey(day string, intervalMinutes, bin int) string {
	return fmt.Sprintf("pred:%d:%s:%04d", intervalMinutes, day, bin)
}

func (k *KVDB) SaveSpeedMatrix(m *datastructure.SpeedMatrix) error {
	maxIndex := m.MaxIndex()
	ids := m.SegmentIDs()
	rec := speedMatrixRecord{
		Day:             m.Day,
		IntervalMinutes: m.IntervalMinutes,
		SegmentIDs:      ids,
		Speeds:          make([]float64, 0, len(ids)*maxIndex),
	}
	for _, id := range ids {
		row := m.Speeds[id]
		if len(row) != maxIndex {
			return fmt.Errorf("segment %d has %d bins, want %d", id, len(row), maxIndex)
		}
		rec.Speeds = append(rec.Speeds, row...)
	}

	val, err := Encode(rec)
	if err != nil {
		return err
	}
	return k.set(speedMatrixKey(m.Day, m.IntervalMinutes), val)
}

// LoadSpeedMatrix returns ErrNotFound when the day was never stored.
func (k *KVDB) LoadSpeedMatrix(day string, intervalMinutes int) (*datastructure.SpeedMatrix, error) {
	val, err := k.get(speedMatrixKey(day, intervalMinutes))
	if err != nil {
		return nil, err
	}
	var rec speedMatrixRecord
	if err := Decode(val, &rec); err != nil {
		return nil, err
	}

	m := datastructure.NewSpeedMatrix(rec.Day, rec.IntervalMinutes)
	maxIndex := m.MaxIndex()
	if len(rec.Speeds) != len(rec.SegmentIDs)*maxIndex {
		return nil, fmt.Errorf("corrupt speed matrix %s", speedMatrixKey(day, intervalMinutes))
	}
	for i, id := range rec.SegmentIDs {
		row := make([]float64, maxIndex)
		copy(row, rec.Speeds[i*maxIndex:(i+1)*maxIndex])
		m.Speeds[id] = row
	}
	return m, nil
}

func (k *KVDB) SavePrediction(p *datastructure.PredictionMap, loc *time.Location) error {
	ids := p.SegmentIDs()
	rec := predictionRecord{
		GeneratedAt:     p.GeneratedAt.Unix(),
		Target:          p.Target.Unix(),
		IntervalMinutes: p.IntervalMinutes,
		Bin:             p.Bin,
		SegmentIDs:      ids,
		Speeds:          make([]float64, len(ids)),
		Ratios:          make([]float64, len(ids)),
	}
	for i, id := range ids {
		rec.Speeds[i] = p.Speeds[id].Speed
		rec.Ratios[i] = p.Speeds[id].SpeedRatio
	}

	val, err := Encode(rec)
	if err != nil {
		return err
	}
	day := datastructure.DayID(p.Target.In(loc))
	return k.set(predictionKey(day, p.IntervalMinutes, p.Bin), val)
}

func (k *KVDB) LoadPrediction(day string, intervalMinutes, bin int, loc *time.Location) (*datastructure.PredictionMap, error) {
	val, err := k.get(predictionKey(day, intervalMinutes, bin))
	if err != nil {
		return nil, err
	}
	var rec predictionRecord
	if err := Decode(val, &rec); err != nil {
		return nil, err
	}
	if len(rec.Speeds) != len(rec.SegmentIDs) || len(rec.Ratios) != len(rec.SegmentIDs) {
		return nil, fmt.Errorf("corrupt prediction %s", predictionKey(day, intervalMinutes, bin))
	}

	p := &datastructure.PredictionMap{
		GeneratedAt:     time.Unix(rec.GeneratedAt, 0).In(loc),
		Target:          time.Unix(rec.Target, 0).In(loc),
		IntervalMinutes: rec.IntervalMinutes,
		Bin:             rec.Bin,
		Speeds:          make(map[int64]datastructure.SegmentPrediction, len(rec.SegmentIDs)),
	}
	for i, id := range rec.SegmentIDs {
		p.Speeds[id] = datastructure.SegmentPrediction{Speed: rec.Speeds[i], SpeedRatio: rec.Ratios[i]}
	}
	return p, nil
}
