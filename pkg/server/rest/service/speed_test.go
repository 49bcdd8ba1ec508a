package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/prediction"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/server"
	"lintang/trafficspeed/pkg/server/rest/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePredictor struct {
	calls int
	err   error
}

func (f *fakePredictor) Predict(ctx context.Context, target time.Time, intervalMinutes int, params prediction.Params) (*datastructure.PredictionMap, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &datastructure.PredictionMap{
		Target:          target,
		IntervalMinutes: intervalMinutes,
		Bin:             datastructure.BinIndex(datastructure.SecondOfDay(target), intervalMinutes),
		Speeds: map[int64]datastructure.SegmentPrediction{
			1: {Speed: 20, SpeedRatio: 0.8},
			2: {Speed: 30, SpeedRatio: 1},
		},
	}, nil
}

type fakeCache map[string]*datastructure.PredictionMap

func cacheKey(day string, interval, bin int) string {
	return fmt.Sprintf("%s/%d/%d", day, interval, bin)
}

func (c fakeCache) LoadPrediction(day string, intervalMinutes, bin int, loc *time.Location) (*datastructure.PredictionMap, error) {
	p, ok := c[cacheKey(day, intervalMinutes, bin)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return p, nil
}

func (c fakeCache) SavePrediction(p *datastructure.PredictionMap, loc *time.Location) error {
	c[cacheKey(datastructure.DayID(p.Target.In(loc)), p.IntervalMinutes, p.Bin)] = p
	return nil
}

type fakeIndex []kv.SmallSegment

func (f fakeIndex) GetNearestSegments(lat, lon, radiusKm float64) ([]kv.SmallSegment, error) {
	if len(f) == 0 {
		return nil, kv.ErrNotFound
	}
	return f, nil
}

func testNetwork() *datastructure.RoadNetwork {
	return datastructure.NewRoadNetwork(datastructure.NetworkTables{
		Nodes: []datastructure.Node{
			{ID: 1, Lat: -7.55, Lon: 110.80},
			{ID: 2, Lat: -7.56, Lon: 110.80},
			{ID: 3, Lat: -7.57, Lon: 110.81},
		},
		Segments: []datastructure.Segment{
			{ID: 1, NodeIDs: []int64{1, 2}},
			{ID: 2, NodeIDs: []int64{2, 3}},
		},
	})
}

func newService(pred *fakePredictor, cache fakeCache, index fakeIndex) *service.SpeedService {
	return service.NewSpeedService(testNetwork(), pred, cache, index, prediction.Params{}, time.UTC, zap.NewNop())
}

func serverCode(t *testing.T, err error) error {
	t.Helper()
	var serr *server.Error
	require.True(t, errors.As(err, &serr), "expected server.Error, got %v", err)
	return serr.Code()
}

var target = time.Date(2024, 3, 4, 8, 12, 0, 0, time.UTC)

func TestPredictedSpeeds(t *testing.T) {
	t.Run("computes on miss and caches", func(t *testing.T) {
		pred, cache := &fakePredictor{}, fakeCache{}
		svc := newService(pred, cache, nil)

		got, err := svc.PredictedSpeeds(context.Background(), target, 5)
		require.NoError(t, err)
		assert.Equal(t, 98, got.Bin)
		assert.Contains(t, cache, cacheKey("20240304", 5, 98))

		_, err = svc.PredictedSpeeds(context.Background(), target.Add(time.Minute), 5)
		require.NoError(t, err)
		assert.Equal(t, 1, pred.calls)
	})

	t.Run("no history is not found", func(t *testing.T) {
		svc := newService(&fakePredictor{err: fmt.Errorf("%w: nothing", prediction.ErrInsufficientHistory)}, fakeCache{}, nil)
		_, err := svc.PredictedSpeeds(context.Background(), target, 5)
		require.Error(t, err)
		assert.Equal(t, server.ErrNotFound, serverCode(t, err))
	})

	t.Run("bad interval", func(t *testing.T) {
		svc := newService(&fakePredictor{}, fakeCache{}, nil)
		_, err := svc.PredictedSpeeds(context.Background(), target, 7)
		assert.Equal(t, server.ErrBadParamInput, serverCode(t, err))
	})

	t.Run("unexpected failure", func(t *testing.T) {
		svc := newService(&fakePredictor{err: errors.New("disk on fire")}, fakeCache{}, nil)
		_, err := svc.PredictedSpeeds(context.Background(), target, 5)
		assert.Equal(t, server.ErrInternalServerError, serverCode(t, err))
	})
}

func TestSegmentSpeed(t *testing.T) {
	svc := newService(&fakePredictor{}, fakeCache{}, nil)

	got, err := svc.SegmentSpeed(context.Background(), 2, target, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.SegmentID)
	assert.Equal(t, 30.0, got.Speed)
	assert.Equal(t, 98, got.Bin)

	_, err = svc.SegmentSpeed(context.Background(), 99, target, 5)
	assert.Equal(t, server.ErrNotFound, serverCode(t, err))
}

func TestNearbySpeeds(t *testing.T) {
	index := fakeIndex{
		{SegmentID: 1, CenterLoc: []float64{-7.555, 110.80}},
		{SegmentID: 2, CenterLoc: []float64{-7.565, 110.805}},
	}
	svc := newService(&fakePredictor{}, fakeCache{}, index)

	got, err := svc.NearbySpeeds(context.Background(), -7.555, 110.80, 1, target, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].SegmentID)
	assert.InDelta(t, 0, got[0].DistanceKm, 1e-9)
	assert.Equal(t, 20.0, got[0].Speed)
	assert.Greater(t, got[1].DistanceKm, 1.0)

	empty, err := newService(&fakePredictor{}, fakeCache{}, nil).NearbySpeeds(context.Background(), 0, 0, 1, target, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSegmentGeometry(t *testing.T) {
	svc := newService(&fakePredictor{}, fakeCache{}, nil)

	coords, err := svc.SegmentGeometry(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []datastructure.Coordinate{{Lat: -7.56, Lon: 110.80}, {Lat: -7.57, Lon: 110.81}}, coords)

	_, err = svc.SegmentGeometry(context.Background(), 5)
	assert.Equal(t, server.ErrNotFound, serverCode(t, err))
}
