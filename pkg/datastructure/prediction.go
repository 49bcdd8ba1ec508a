package datastructure

import (
	"sort"
	"time"
)

type SegmentPrediction struct {
	Speed      float64 `json:"speed"`
	SpeedRatio float64 `json:"speed_ratio"`
}

// PredictionMap hasil prediksi semua segment untuk satu (timestamp, interval).
type PredictionMap struct {
	GeneratedAt     time.Time
	Target          time.Time
	IntervalMinutes int
	Bin             int
	Speeds          map[int64]SegmentPrediction
}

func (p *PredictionMap) SegmentIDs() []int64 {
	ids := make([]int64, 0, len(p.Speeds))
	for id := range p.Speeds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
