package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PredictionDocument format cache json hasil prediksi satu bin.
type PredictionDocument struct {
	GenerateTimeStr   string                                     `json:"generate_timestr"`
	GenerateTimestamp int64                                      `json:"generate_timestamp"`
	TimeSlotInterval  int                                        `json:"time_slot_interval"`
	IntervalIdx       int                                        `json:"interval_idx"`
	PredictTimeRange  string                                     `json:"predict_time_range"`
	RoadSpeed         map[string]datastructure.SegmentPrediction `json:"road_speed"`
}

// NewPredictionDocument speed dan ratio dibulatkan 2 angka di belakang koma.
func NewPredictionDocument(p *datastructure.PredictionMap) PredictionDocument {
	doc := PredictionDocument{
		GenerateTimeStr:   p.GeneratedAt.Format(time.DateTime),
		GenerateTimestamp: p.GeneratedAt.Unix(),
		TimeSlotInterval:  p.IntervalMinutes,
		IntervalIdx:       p.Bin,
		PredictTimeRange:  util.TimeRangeLabel(p.Bin, p.IntervalMinutes),
		RoadSpeed:         make(map[string]datastructure.SegmentPrediction, len(p.Speeds)),
	}
	for id, sp := range p.Speeds {
		doc.RoadSpeed[strconv.FormatInt(id, 10)] = datastructure.SegmentPrediction{
			Speed:      util.RoundFloat(sp.Speed, 2),
			SpeedRatio: util.RoundFloat(sp.SpeedRatio, 2),
		}
	}
	return doc
}

type PredictionJSONStore struct {
	dir string
}

func NewPredictionJSONStore(dir string) *PredictionJSONStore {
	return &PredictionJSONStore{dir: dir}
}

func (s *PredictionJSONStore) Path(day string, intervalMinutes, bin int) string {
	return filepath.Join(s.dir, day, "prediction", fmt.Sprintf("%s_%d_min_%04d.json", day, intervalMinutes, bin))
}

func (s *PredictionJSONStore) SavePrediction(p *datastructure.PredictionMap, loc *time.Location) (string, error) {
	path := s.Path(datastructure.DayID(p.Target.In(loc)), p.IntervalMinutes, p.Bin)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	bb, err := json.Marshal(NewPredictionDocument(p))
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, bb, 0o644)
}

func (s *PredictionJSONStore) LoadDocument(day string, intervalMinutes, bin int) (PredictionDocument, error) {
	var doc PredictionDocument
	bb, err := os.ReadFile(s.Path(day, intervalMinutes, bin))
	if err != nil {
		return doc, err
	}
	err = json.Unmarshal(bb, &doc)
	return doc, err
}
