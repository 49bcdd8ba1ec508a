package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/prediction"
	"lintang/trafficspeed/pkg/geo"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/server"
)

type Predictor interface {
	Predict(ctx context.Context, target time.Time, intervalMinutes int, params prediction.Params) (*datastructure.PredictionMap, error)
}

type PredictionCache interface {
	LoadPrediction(day string, intervalMinutes, bin int, loc *time.Location) (*datastructure.PredictionMap, error)
	SavePrediction(p *datastructure.PredictionMap, loc *time.Location) error
}

type SegmentIndex interface {
	GetNearestSegments(lat, lon, radiusKm float64) ([]kv.SmallSegment, error)
}

type SegmentSpeed struct {
	SegmentID       int64
	IntervalMinutes int
	Bin             int
	datastructure.SegmentPrediction
}

type NearbySegment struct {
	SegmentID  int64
	Center     datastructure.Coordinate
	DistanceKm float64
	datastructure.SegmentPrediction
}

type SpeedService struct {
	net       *datastructure.RoadNetwork
	predictor Predictor
	cache     PredictionCache
	index     SegmentIndex
	params    prediction.Params
	loc       *time.Location
	log       *zap.Logger
}

func NewSpeedService(net *datastructure.RoadNetwork, predictor Predictor, cache PredictionCache, index SegmentIndex,
	params prediction.Params, loc *time.Location, log *zap.Logger) *SpeedService {
	if loc == nil {
		loc = time.Local
	}
	return &SpeedService{net: net, predictor: predictor, cache: cache, index: index, params: params, loc: loc, log: log}
}

// PredictedSpeeds prediksi semua segment untuk bin yang memuat target. Ambil dari cache kv dulu, kalau belum ada
// dihitung lalu disimpan.
func (s *SpeedService) PredictedSpeeds(ctx context.Context, target time.Time, intervalMinutes int) (*datastructure.PredictionMap, error) {
	if intervalMinutes <= 0 || datastructure.MinutesPerDay%intervalMinutes != 0 {
		return nil, server.WrapErrorf(config.ErrInvalidConfig, server.ErrBadParamInput, "interval %d does not divide a day", intervalMinutes)
	}
	target = target.In(s.loc)
	day := datastructure.DayID(target)
	bin := datastructure.BinIndex(datastructure.SecondOfDay(target), intervalMinutes)

	cached, err := s.cache.LoadPrediction(day, intervalMinutes, bin, s.loc)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		s.log.Warn("failed reading cached prediction", zap.String("day", day), zap.Int("bin", bin), zap.Error(err))
	}

	p, err := s.predictor.Predict(ctx, target, intervalMinutes, s.params)
	if err != nil {
		switch {
		case errors.Is(err, prediction.ErrInsufficientHistory):
			return nil, server.WrapErrorf(err, server.ErrNotFound, "no speed history for %s", day)
		case errors.Is(err, config.ErrInvalidConfig):
			return nil, server.WrapErrorf(err, server.ErrBadParamInput, "%s", err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		}
		s.log.Error("prediction failed", zap.String("day", day), zap.Int("bin", bin), zap.Error(err))
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, server.MessageInternalServerError)
	}

	if err := s.cache.SavePrediction(p, s.loc); err != nil {
		s.log.Warn("failed caching prediction", zap.String("day", day), zap.Int("bin", bin), zap.Error(err))
	}
	return p, nil
}

func (s *SpeedService) SegmentSpeed(ctx context.Context, segmentID int64, target time.Time, intervalMinutes int) (SegmentSpeed, error) {
	if !s.net.IsSegment(segmentID) {
		return SegmentSpeed{}, server.WrapErrorf(nil, server.ErrNotFound, "segment %d not found", segmentID)
	}
	p, err := s.PredictedSpeeds(ctx, target, intervalMinutes)
	if err != nil {
		return SegmentSpeed{}, err
	}
	sp, ok := p.Speeds[segmentID]
	if !ok {
		return SegmentSpeed{}, server.WrapErrorf(nil, server.ErrNotFound, "no prediction for segment %d", segmentID)
	}
	return SegmentSpeed{SegmentID: segmentID, IntervalMinutes: p.IntervalMinutes, Bin: p.Bin, SegmentPrediction: sp}, nil
}

// NearbySpeeds segment di sekitar titik (urut dari yang terdekat) beserta prediksinya.
// Kalau radius kosong, index kv sudah melebarkan pencarian ke ring berikutnya.
func (s *SpeedService) NearbySpeeds(ctx context.Context, lat, lon, radiusKm float64, target time.Time, intervalMinutes int) ([]NearbySegment, error) {
	segs, err := s.index.GetNearestSegments(lat, lon, radiusKm)
	if errors.Is(err, kv.ErrNotFound) || (err == nil && len(segs) == 0) {
		return []NearbySegment{}, nil
	}
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, server.MessageInternalServerError)
	}

	p, err := s.PredictedSpeeds(ctx, target, intervalMinutes)
	if err != nil {
		return nil, err
	}

	here := datastructure.NewCoordinate(lat, lon)
	out := make([]NearbySegment, 0, len(segs))
	for _, seg := range segs {
		center := datastructure.NewCoordinate(seg.CenterLoc[0], seg.CenterLoc[1])
		out = append(out, NearbySegment{
			SegmentID:         seg.SegmentID,
			Center:            center,
			DistanceKm:        geo.HaversineDistance(here, center),
			SegmentPrediction: p.Speeds[seg.SegmentID],
		})
	}
	return out, nil
}

func (s *SpeedService) SegmentGeometry(ctx context.Context, segmentID int64) ([]datastructure.Coordinate, error) {
	coords := s.net.SegmentCoordinates(segmentID)
	if len(coords) == 0 {
		return nil, server.WrapErrorf(nil, server.ErrNotFound, "segment %d not found", segmentID)
	}
	return coords, nil
}
