package speed_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/matching"
	"lintang/trafficspeed/pkg/engine/speed"
	"lintang/trafficspeed/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const mphDivisor = 1.60934

func testNetwork() *datastructure.RoadNetwork {
	return datastructure.NewRoadNetwork(datastructure.NetworkTables{
		Nodes: []datastructure.Node{
			{ID: 1, Lat: 42.90, Lon: -78.80},
			{ID: 2, Lat: 42.905, Lon: -78.80},
			{ID: 3, Lat: 42.91, Lon: -78.80},
			{ID: 4, Lat: 42.905, Lon: -78.79},
		},
		Segments: []datastructure.Segment{
			{ID: 10, NodeIDs: []int64{1, 2, 3}},
			{ID: 11, NodeIDs: []int64{2, 4}},
			{ID: 30, NodeIDs: []int64{1}},
		},
		Routes: []datastructure.Route{
			{ID: 100, Members: []int64{10, 11}, Tags: map[string]string{"ref": "7"}},
			{ID: 200, Members: []int64{11}, Tags: map[string]string{"ref": "Route 12X"}},
			{ID: 300, Members: []int64{30}, Tags: map[string]string{"ref": "99"}},
		},
	})
}

func newDeriver(t *testing.T, opts speed.Options) *speed.Deriver {
	t.Helper()
	net := testNetwork()
	if opts.MatchMargin == 0 {
		opts.MatchMargin = 0.01
	}
	if opts.UnitDivisor == 0 {
		opts.UnitDivisor = mphDivisor
	}
	return speed.NewDeriver(net, matching.NewMatcher(net, zap.NewNop()), speed.NewRouteIndex(net.Routes()), opts, zap.NewNop())
}

func ping(route string, lat, lon float64, sec int) datastructure.Ping {
	return datastructure.Ping{VehicleID: "bus", RouteID: route, Lat: lat, Lon: lon, SecondOfDay: sec}
}

func source(pings ...datastructure.Ping) speed.PingSource {
	return speed.SlicePingSource{ID: "bus", Pings: pings}
}

func assertAllZero(t *testing.T, m *datastructure.SpeedMatrix) {
	t.Helper()
	for _, id := range m.SegmentIDs() {
		for _, v := range m.Speeds[id] {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestSpeed(t *testing.T) {
	assert.InDelta(t, 29.825891, speed.Speed(0.2, 15, mphDivisor), 1e-6)
	assert.InDelta(t, 48.0, speed.Speed(0.2, 15, 1), 1e-9)
}

func TestDeriveDaySpeeds(t *testing.T) {
	ctx := context.Background()

	t.Run("0.2 km in 15 seconds is about 30 mph", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1})
		m, stats, err := d.DeriveDaySpeeds(ctx, "20240101", []speed.PingSource{source(
			ping("7", 42.90, -78.80, 100),
			ping("7", 42.9017993608662, -78.80, 115),
		)}, 5)
		require.NoError(t, err)

		assert.Equal(t, 288, m.MaxIndex())
		assert.InDelta(t, 29.8259, m.Speeds[10][0], 1e-4)
		assert.Equal(t, 0.0, m.Speeds[10][1])
		assert.Equal(t, 0.0, m.Speeds[11][0])
		assert.True(t, m.Has(30))
		assert.Equal(t, 1, stats.Accepted)
	})

	t.Run("pings are sorted before pairing", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1})
		m, stats, err := d.DeriveDaySpeeds(ctx, "20240101", []speed.PingSource{source(
			ping("7", 42.9017993608662, -78.80, 115),
			ping("7", 42.90, -78.80, 100),
		)}, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Accepted)
		assert.InDelta(t, 29.8259, m.Speeds[10][0], 1e-4)
	})

	t.Run("straddling pair smears into both segments and both bins", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1})
		p1 := ping("7", 42.9045, -78.80, 290)
		p2 := ping("7", 42.9051, -78.794, 305)
		m, _, err := d.DeriveDaySpeeds(ctx, "20240101", []speed.PingSource{source(p1, p2)}, 5)
		require.NoError(t, err)

		want := speed.Speed(geo.FastDistance(
			datastructure.NewCoordinate(42.9045, -78.80),
			datastructure.NewCoordinate(42.905, -78.794)), 15, mphDivisor)
		for _, seg := range []int64{10, 11} {
			for _, bin := range []int{0, 1} {
				assert.InDelta(t, want, m.Speeds[seg][bin], 1e-6, "segment %d bin %d", seg, bin)
			}
		}
		assert.Equal(t, 0.0, m.Speeds[10][2])
	})

	t.Run("samples from several files are averaged", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1, Workers: 2})
		m, stats, err := d.DeriveDaySpeeds(ctx, "20240101", []speed.PingSource{
			source(ping("7", 42.90, -78.80, 100), ping("7", 42.9017993608662, -78.80, 115)),
			source(ping("7", 42.90, -78.80, 200), ping("7", 42.9017993608662, -78.80, 230)),
		}, 5)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Files)
		assert.InDelta(t, (29.825891+14.912946)/2, m.Speeds[10][0], 1e-4)
	})

	t.Run("recent window drops older pings", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1, Since: 110})
		m, stats, err := d.DeriveDaySpeeds(ctx, "20240101", []speed.PingSource{source(
			ping("7", 42.90, -78.80, 100),
			ping("7", 42.9017993608662, -78.80, 115),
		)}, 5)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Pairs)
		assertAllZero(t, m)
	})

	t.Run("cancelled context", func(t *testing.T) {
		d := newDeriver(t, speed.Options{MaxBinSpan: 1})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := d.DeriveDaySpeeds(cctx, "20240101", []speed.PingSource{source(
			ping("7", 42.90, -78.80, 100),
			ping("7", 42.9017993608662, -78.80, 115),
		)}, 5)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDeriveDaySpeedsRejections(t *testing.T) {
	cases := []struct {
		name   string
		p1, p2 datastructure.Ping
		reason speed.RejectReason
	}{
		{"span more than one bin", ping("7", 42.90, -78.80, 0), ping("7", 42.901, -78.80, 700), speed.RejectBinSpan},
		{"same timestamp", ping("7", 42.90, -78.80, 100), ping("7", 42.901, -78.80, 100), speed.RejectSameTimestamp},
		{"same position", ping("7", 42.90, -78.80, 100), ping("7", 42.90, -78.80, 110), speed.RejectSamePosition},
		{"bad fix sentinel", ping("7", 99, 999, 100), ping("7", 42.90, -78.80, 110), speed.RejectBadFix},
		{"route change", ping("7", 42.90, -78.80, 100), ping("12", 42.901, -78.80, 110), speed.RejectRouteChange},
		{"unknown route", ping("55", 42.90, -78.80, 100), ping("55", 42.901, -78.80, 110), speed.RejectNoRoute},
		{"no matchable segment", ping("99", 42.90, -78.80, 100), ping("99", 42.901, -78.80, 110), speed.RejectNoMatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDeriver(t, speed.Options{MaxBinSpan: 1})
			m, stats, err := d.DeriveDaySpeeds(context.Background(), "20240101", []speed.PingSource{source(tc.p1, tc.p2)}, 5)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Rejected[tc.reason])
			assert.Equal(t, 0, stats.Accepted)
			assertAllZero(t, m)
		})
	}
}

func TestRouteIndex(t *testing.T) {
	idx := speed.NewRouteIndex(testNetwork().Routes())

	assert.Equal(t, []int64{100}, idx.Resolve("7"))
	assert.Equal(t, []int64{200}, idx.Resolve("12"))
	assert.Empty(t, idx.Resolve("55"))
	assert.Empty(t, idx.Resolve(""))
}

func TestParsePings(t *testing.T) {
	data := strings.Join([]string{
		"a,7,x,x,x,x,x,42.9,-78.8,x,2024-01-01 08:00:15",
		"a,7,x,x,x,x,x,oops,-78.8,x,2024-01-01 08:00:30",
		"a,7,x,x,x,x,x,42.901,-78.8,x,08:00:45",
		"short,row",
	}, "\n")
	layout := speed.DefaultColumnLayout()
	layout.Location = time.UTC

	pings, err := speed.ParsePings(strings.NewReader(data), "bus-1", layout)
	require.NoError(t, err)
	require.Len(t, pings, 2)
	assert.Equal(t, datastructure.Ping{VehicleID: "bus-1", RouteID: "7", Lat: 42.9, Lon: -78.8, SecondOfDay: 8*3600 + 15}, pings[0])
	assert.Equal(t, 8*3600+45, pings[1].SecondOfDay)
}

func TestParseSecondOfDayUnix(t *testing.T) {
	sec, err := speed.ParseSecondOfDay("1704096015", time.UTC) // 2024-01-01 08:00:15 UTC
	require.NoError(t, err)
	assert.Equal(t, 8*3600+15, sec)
}
