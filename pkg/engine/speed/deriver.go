package speed

import (
	"context"
	"sort"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/concurrent"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/matching"
	"lintang/trafficspeed/pkg/geo"
)

// checkEvery cek ctx tiap sekian pasangan ping.
const checkEvery = 256

type Options struct {
	MatchMargin float64
	MaxBinSpan  int
	// UnitDivisor km per satuan output, 1.60934 untuk mph.
	UnitDivisor float64
	// Since drops pings older than this second of day; <= 0 keeps everything.
	Since    int
	Workers  int
	Progress bool
}

type Deriver struct {
	net     *datastructure.RoadNetwork
	matcher *matching.Matcher
	routes  *RouteIndex
	opts    Options
	log     *zap.Logger
}

func NewDeriver(net *datastructure.RoadNetwork, matcher *matching.Matcher, routes *RouteIndex, opts Options, log *zap.Logger) *Deriver {
	if opts.UnitDivisor <= 0 {
		opts.UnitDivisor = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Deriver{
		net:     net,
		matcher: matcher,
		routes:  routes,
		opts:    opts,
		log:     log,
	}
}

type fileResult struct {
	acc   *accumulator
	stats Stats
}

// DeriveDaySpeeds membuat speed matrix satu hari dari semua file ping kendaraan.
// Tiap file diproses worker terpisah ke accumulator sendiri, lalu digabung sesuai urutan sources.
func (d *Deriver) DeriveDaySpeeds(ctx context.Context, dayID string, sources []PingSource, intervalMinutes int) (*datastructure.SpeedMatrix, Stats, error) {
	var bar *progressbar.ProgressBar
	if d.opts.Progress {
		bar = progressbar.NewOptions(len(sources),
			progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan][1/2][reset] deriving segment speed from bus pings..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	results, done, err := concurrent.RunOrdered(ctx, d.opts.Workers, sources,
		func(ctx context.Context, src PingSource) (fileResult, error) {
			res, err := d.processFile(ctx, src, intervalMinutes)
			if bar != nil {
				bar.Add(1)
			}
			return res, err
		})
	if err != nil {
		return nil, Stats{}, err
	}

	total := newAccumulator()
	stats := newStats()
	for i, res := range results {
		if !done[i] {
			continue
		}
		total.merge(res.acc)
		stats.merge(res.stats)
	}

	matrix := total.finalize(dayID, intervalMinutes, d.net.SegmentIDs())
	d.log.Sugar().Infof("day %s: %d files, %d pings, %d/%d pairs accepted", dayID, stats.Files, stats.Pings, stats.Accepted, stats.Pairs)
	return matrix, stats, nil
}

func (d *Deriver) processFile(ctx context.Context, src PingSource, intervalMinutes int) (fileResult, error) {
	res := fileResult{acc: newAccumulator(), stats: newStats()}
	res.stats.Files = 1

	pings, err := src.ReadPings()
	if err != nil {
		d.log.Warn("failed reading ping file", zap.String("file", src.Name()), zap.Error(err))
		res.stats.FailedFiles = 1
		return res, nil
	}

	if d.opts.Since > 0 {
		recent := pings[:0]
		for _, p := range pings {
			if p.SecondOfDay >= d.opts.Since {
				recent = append(recent, p)
			}
		}
		pings = recent
	}
	sort.SliceStable(pings, func(i, j int) bool { return pings[i].SecondOfDay < pings[j].SecondOfDay })
	res.stats.Pings = len(pings)

	for i := 0; i+1 < len(pings); i++ {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return fileResult{}, ctx.Err()
		}
		res.stats.Pairs++
		if reason := d.addPair(res.acc, pings[i], pings[i+1], intervalMinutes); reason != "" {
			res.stats.Rejected[reason]++
			d.log.Debug("pair rejected", zap.String("file", src.Name()), zap.Int("line", i), zap.String("reason", string(reason)))
			continue
		}
		res.stats.Accepted++
	}
	return res, nil
}

// addPair returns "" when the pair contributed a sample.
func (d *Deriver) addPair(acc *accumulator, p1, p2 datastructure.Ping, intervalMinutes int) RejectReason {
	bin1 := datastructure.BinIndex(p1.SecondOfDay, intervalMinutes)
	bin2 := datastructure.BinIndex(p2.SecondOfDay, intervalMinutes)

	switch {
	case abs(bin2-bin1) > d.opts.MaxBinSpan:
		return RejectBinSpan
	case p1.SecondOfDay == p2.SecondOfDay:
		return RejectSameTimestamp
	case p1.Lat == p2.Lat && p1.Lon == p2.Lon:
		return RejectSamePosition
	case !p1.IsValidFix() || !p2.IsValidFix():
		return RejectBadFix
	case p1.RouteID != p2.RouteID:
		return RejectRouteChange
	}

	routes1 := d.routes.Resolve(p1.RouteID)
	if len(routes1) == 0 {
		return RejectNoRoute
	}
	m1, err := d.matcher.Match(p1.Coordinate(), routes1, d.opts.MatchMargin)
	if err != nil {
		return RejectNoMatch
	}
	routes2 := d.routes.Resolve(p2.RouteID)
	if len(routes2) == 0 {
		return RejectNoRoute
	}
	m2, err := d.matcher.Match(p2.Coordinate(), routes2, d.opts.MatchMargin)
	if err != nil {
		return RejectNoMatch
	}

	speed := Speed(geo.FastDistance(m1.Point, m2.Point), p2.SecondOfDay-p1.SecondOfDay, d.opts.UnitDivisor)
	if speed == 0 {
		return RejectZeroSpeed
	}

	acc.add(speed, []int64{m1.SegmentID, m2.SegmentID}, []int{bin1, bin2})
	return ""
}

// Speed km per detik -> satuan output per jam.
func Speed(distanceKM float64, elapsedSeconds int, unitDivisor float64) float64 {
	return distanceKM / float64(elapsedSeconds) * 3600 / unitDivisor
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
