package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/server"
	"lintang/trafficspeed/pkg/server/rest"
	"lintang/trafficspeed/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	lastTarget   time.Time
	lastInterval int
}

func (f *fakeService) PredictedSpeeds(ctx context.Context, target time.Time, intervalMinutes int) (*datastructure.PredictionMap, error) {
	f.lastTarget, f.lastInterval = target, intervalMinutes
	return &datastructure.PredictionMap{
		GeneratedAt:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Target:          target,
		IntervalMinutes: intervalMinutes,
		Bin:             3,
		Speeds: map[int64]datastructure.SegmentPrediction{
			42: {Speed: 21.456, SpeedRatio: 0.7152},
		},
	}, nil
}

func (f *fakeService) SegmentSpeed(ctx context.Context, segmentID int64, target time.Time, intervalMinutes int) (service.SegmentSpeed, error) {
	if segmentID != 42 {
		return service.SegmentSpeed{}, server.WrapErrorf(nil, server.ErrNotFound, "segment %d not found", segmentID)
	}
	return service.SegmentSpeed{
		SegmentID:         42,
		IntervalMinutes:   intervalMinutes,
		Bin:               3,
		SegmentPrediction: datastructure.SegmentPrediction{Speed: 21.456, SpeedRatio: 0.7152},
	}, nil
}

func (f *fakeService) NearbySpeeds(ctx context.Context, lat, lon, radiusKm float64, target time.Time, intervalMinutes int) ([]service.NearbySegment, error) {
	return []service.NearbySegment{{
		SegmentID:         42,
		Center:            datastructure.NewCoordinate(lat, lon),
		DistanceKm:        0.12345,
		SegmentPrediction: datastructure.SegmentPrediction{Speed: 10, SpeedRatio: 0.5},
	}}, nil
}

func (f *fakeService) SegmentGeometry(ctx context.Context, segmentID int64) ([]datastructure.Coordinate, error) {
	if segmentID != 42 {
		return nil, server.WrapErrorf(nil, server.ErrNotFound, "segment %d not found", segmentID)
	}
	return []datastructure.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	}, nil
}

func newRouter(svc rest.SpeedService) *chi.Mux {
	r := chi.NewRouter()
	m := rest.NewMetrics(prometheus.NewRegistry())
	r.Use(rest.PromeHttpMiddleware(m))
	rest.SpeedRouter(r, svc, m, 5)
	return r
}

func do(t *testing.T, r http.Handler, url string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestPredictedSpeedsHandler(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	rec, body := do(t, r, "/api/speeds?timestamp=1709539200&interval=15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1709539200), svc.lastTarget.Unix())
	assert.Equal(t, 15, svc.lastInterval)
	assert.Equal(t, float64(3), body["interval_idx"])
	assert.Equal(t, "00:45 - 00:59", body["predict_time_range"])

	road := body["road_speed"].(map[string]interface{})["42"].(map[string]interface{})
	assert.Equal(t, 21.46, road["speed"])
	assert.Equal(t, 0.72, road["speed_ratio"])

	t.Run("default interval and rfc3339 timestamp", func(t *testing.T) {
		rec, _ := do(t, r, "/api/speeds?timestamp=2024-03-04T08:00:00Z")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, svc.lastInterval)
		assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC).Unix(), svc.lastTarget.Unix())
	})

	t.Run("malformed interval", func(t *testing.T) {
		rec, body := do(t, r, "/api/speeds?interval=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request.", body["status"])
	})

	t.Run("interval out of range", func(t *testing.T) {
		rec, body := do(t, r, "/api/speeds?interval=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, body["validation"])
	})
}

func TestSegmentSpeedHandler(t *testing.T) {
	r := newRouter(&fakeService{})

	rec, body := do(t, r, "/api/speeds/segments/42?timestamp=1709539200")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), body["segment_id"])
	assert.Equal(t, 21.46, body["speed"])
	assert.Equal(t, "00:15 - 00:19", body["predict_time_range"])

	rec, body = do(t, r, "/api/speeds/segments/7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Resource not found.", body["status"])

	rec, _ = do(t, r, "/api/speeds/segments/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearbySpeedsHandler(t *testing.T) {
	r := newRouter(&fakeService{})

	rec, body := do(t, r, "/api/speeds/nearby?lat=-7.55&lon=110.8&radius_km=1")
	require.Equal(t, http.StatusOK, rec.Code)
	segs := body["segments"].([]interface{})
	require.Len(t, segs, 1)
	seg := segs[0].(map[string]interface{})
	assert.Equal(t, float64(42), seg["segment_id"])
	assert.Equal(t, 0.123, seg["distance_km"])

	rec, body = do(t, r, "/api/speeds/nearby?lon=110.8")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["validation"])

	rec, _ = do(t, r, "/api/speeds/nearby?lat=-7.55&lon=110.8&radius_km=50")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSegmentGeometryHandler(t *testing.T) {
	r := newRouter(&fakeService{})

	rec, body := do(t, r, "/api/segments/42/geometry")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", body["polyline"])
	assert.Len(t, body["coordinates"], 3)

	rec, _ = do(t, r, "/api/segments/1/geometry")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
