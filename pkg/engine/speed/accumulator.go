package speed

import "lintang/trafficspeed/pkg/datastructure"

type cellKey struct {
	segmentID int64
	bin       int
}

// accumulator sample speed per (segment, bin). Milik satu worker, tidak di-share.
type accumulator struct {
	samples map[cellKey][]float64
}

func newAccumulator() *accumulator {
	return &accumulator{samples: make(map[cellKey][]float64)}
}

// add appends speed to every segment x bin combination, duplicates collapsed.
func (a *accumulator) add(speed float64, segmentIDs []int64, bins []int) {
	seen := make(map[cellKey]struct{}, len(segmentIDs)*len(bins))
	for _, s := range segmentIDs {
		for _, b := range bins {
			k := cellKey{segmentID: s, bin: b}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			a.samples[k] = append(a.samples[k], speed)
		}
	}
}

func (a *accumulator) merge(other *accumulator) {
	if other == nil {
		return
	}
	for k, v := range other.samples {
		a.samples[k] = append(a.samples[k], v...)
	}
}

// finalize mean per cell; every network segment gets a row, 0 where no sample exists.
func (a *accumulator) finalize(dayID string, intervalMinutes int, segmentIDs []int64) *datastructure.SpeedMatrix {
	m := datastructure.NewSpeedMatrix(dayID, intervalMinutes)
	for _, id := range segmentIDs {
		m.Row(id)
	}
	maxIndex := m.MaxIndex()
	for k, v := range a.samples {
		if len(v) == 0 || k.bin < 0 || k.bin >= maxIndex {
			continue
		}
		sum := 0.0
		for _, s := range v {
			sum += s
		}
		m.Set(k.segmentID, k.bin, sum/float64(len(v)))
	}
	return m
}
