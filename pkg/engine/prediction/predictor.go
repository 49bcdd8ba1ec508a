package prediction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/storage"
	"lintang/trafficspeed/pkg/util"
)

var ErrInsufficientHistory = errors.New("no historical speed matrix available")

type HistoryStore interface {
	LoadSpeedMatrix(day string, intervalMinutes int) (*datastructure.SpeedMatrix, error)
}

type Params struct {
	HistoryOffsets  []int
	HistoryWeights  []float64
	FallbackOffsets []int
}

func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		HistoryOffsets:  cfg.HistoryOffsets,
		HistoryWeights:  cfg.HistoryWeights,
		FallbackOffsets: cfg.FallbackOffsets,
	}
}

func (p Params) Validate() error {
	if len(p.HistoryOffsets) == 0 {
		return fmt.Errorf("%w: no history offsets", config.ErrInvalidConfig)
	}
	if len(p.HistoryOffsets) != len(p.HistoryWeights) {
		return fmt.Errorf("%w: %d history offsets but %d weights", config.ErrInvalidConfig, len(p.HistoryOffsets), len(p.HistoryWeights))
	}
	return nil
}

type Options struct {
	GapFill  GapFillOptions
	Workers  int
	Location *time.Location
	Progress bool
}

type Predictor struct {
	net   *datastructure.RoadNetwork
	store HistoryStore
	opts  Options
	log   *zap.Logger
	now   func() time.Time
}

func NewPredictor(net *datastructure.RoadNetwork, store HistoryStore, opts Options, log *zap.Logger) *Predictor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Predictor{net: net, store: store, opts: opts, log: log, now: time.Now}
}

// History speed matrix hari-hari referensi yang berhasil di-load beserta bobotnya.
type History struct {
	IntervalMinutes int
	Days            []string
	MissingDays     []string
	Matrices        []*datastructure.SpeedMatrix
	Weights         []float64

	// allSegments union, commonSegments intersection of the matrices' segment sets.
	allSegments    []int64
	commonSegments []int64
}

// LoadHistory load matrix untuk setiap offset hari dari tanggal target. Hari yang tidak ada di-drop dan bobotnya
// dibagi ke hari yang ada.
func (p *Predictor) LoadHistory(target time.Time, intervalMinutes int, params Params) (*History, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	target = target.In(p.opts.Location)

	h := &History{IntervalMinutes: intervalMinutes}
	missing := make(map[int]bool)
	for i, offset := range params.HistoryOffsets {
		day := datastructure.DayID(target.AddDate(0, 0, offset))
		m, err := p.store.LoadSpeedMatrix(day, intervalMinutes)
		if err != nil {
			if !storage.IsNotFound(err) {
				p.log.Warn("failed loading speed matrix", zap.String("day", day), zap.Error(err))
			} else {
				p.log.Warn("speed matrix missing", zap.String("day", day), zap.Int("interval", intervalMinutes))
			}
			missing[i] = true
			h.MissingDays = append(h.MissingDays, day)
			continue
		}
		h.Days = append(h.Days, day)
		h.Matrices = append(h.Matrices, m)
	}

	h.Weights = ReassignWeight(params.HistoryWeights, missing)
	if len(h.Matrices) == 0 || h.Weights == nil {
		return nil, fmt.Errorf("%w: target %s, missing %v", ErrInsufficientHistory, datastructure.DayID(target), h.MissingDays)
	}

	h.allSegments, h.commonSegments = segmentSets(h.Matrices)
	return h, nil
}

func segmentSets(matrices []*datastructure.SpeedMatrix) ([]int64, []int64) {
	count := make(map[int64]int)
	for _, m := range matrices {
		for id := range m.Speeds {
			count[id]++
		}
	}
	all := make([]int64, 0, len(count))
	common := make([]int64, 0, len(count))
	for id, c := range count {
		all = append(all, id)
		if c == len(matrices) {
			common = append(common, id)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })
	return all, common
}

// BinSpeeds weighted blend untuk satu bin sebelum gap fill.
// Segment yang tidak ada di semua matrix bernilai 0.
func (h *History) BinSpeeds(bin int, fallbackOffsets []int) map[int64]float64 {
	maxIndex := datastructure.MaxIndex(h.IntervalMinutes)
	speeds := make(map[int64]float64, len(h.allSegments))
	for _, id := range h.allSegments {
		speeds[id] = 0
	}

	values := make([]float64, len(h.Matrices))
	need := make([]bool, len(h.Matrices))
	for _, id := range h.commonSegments {
		numNeed := 0
		for i, m := range h.Matrices {
			v, _ := m.Get(id, bin)
			if v <= 0 {
				for _, off := range fallbackOffsets {
					v, _ = m.Get(id, util.WrapIndex(bin+off, maxIndex))
					if v > 0 {
						break
					}
				}
			}
			values[i] = v
			need[i] = v <= 0
			if need[i] {
				numNeed++
			}
		}

		switch {
		case numNeed >= len(h.Weights):
			speeds[id] = 0
		case numNeed > 0:
			speeds[id] = Dot(EstimateMissing(values, need, h.Weights), h.Weights)
		default:
			speeds[id] = Dot(values, h.Weights)
		}
	}
	return speeds
}

// Predict prediksi kecepatan semua segment pada bin yang memuat target.
func (p *Predictor) Predict(ctx context.Context, target time.Time, intervalMinutes int, params Params) (*datastructure.PredictionMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if intervalMinutes <= 0 || datastructure.MinutesPerDay%intervalMinutes != 0 {
		return nil, fmt.Errorf("%w: interval %d", config.ErrInvalidConfig, intervalMinutes)
	}

	h, err := p.LoadHistory(target, intervalMinutes, params)
	if err != nil {
		return nil, err
	}
	target = target.In(p.opts.Location)
	bin := datastructure.BinIndex(datastructure.SecondOfDay(target), intervalMinutes)
	return p.predictBin(h, target, bin, params), nil
}

func (p *Predictor) predictBin(h *History, target time.Time, bin int, params Params) *datastructure.PredictionMap {
	speeds := h.BinSpeeds(bin, params.FallbackOffsets)
	GapFill(speeds, p.net, p.opts.GapFill)

	classes := p.net.Classes()
	out := &datastructure.PredictionMap{
		GeneratedAt:     p.now().In(p.opts.Location),
		Target:          target,
		IntervalMinutes: h.IntervalMinutes,
		Bin:             bin,
		Speeds:          make(map[int64]datastructure.SegmentPrediction, len(speeds)),
	}
	for id, v := range speeds {
		ratio := 1.0
		if limit := classes.SpeedLimit(id); limit > 0 {
			ratio = v / limit
		}
		out.Speeds[id] = datastructure.SegmentPrediction{Speed: v, SpeedRatio: ratio}
	}
	return out
}
