package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/matching"
	"lintang/trafficspeed/pkg/engine/speed"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/logger"
	"lintang/trafficspeed/pkg/networkio"
	"lintang/trafficspeed/pkg/storage"
)

var (
	day        = flag.String("day", "", "tanggal YYYYMMDD, default hari ini")
	pingDir    = flag.String("pings", "", "folder file csv ping bus, default {data dir}/{day}/raw")
	latestMins = flag.Int("latest", 0, "hanya pakai ping N menit terakhir (0 = semua)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	dayID := *day
	if dayID == "" {
		dayID = datastructure.DayID(time.Now().In(cfg.Location))
	}
	if _, err := time.ParseInLocation(datastructure.DayLayout, dayID, cfg.Location); err != nil {
		lg.Fatal("bad -day", zap.String("day", dayID), zap.Error(err))
	}
	dir := *pingDir
	if dir == "" {
		dir = filepath.Join(cfg.DataDir, dayID, "raw")
	}

	net, err := networkio.LoadNetwork(cfg.GraphDir, cfg.SpeedLimitGranularity)
	if err != nil {
		lg.Fatal("loading road network failed", zap.String("dir", cfg.GraphDir), zap.Error(err))
	}
	sources, err := speed.DirPingSources(dir, speed.DefaultColumnLayout())
	if err != nil {
		lg.Fatal("listing ping files failed", zap.String("dir", dir), zap.Error(err))
	}

	since := 0
	if *latestMins > 0 {
		since = datastructure.SecondOfDay(time.Now().In(cfg.Location)) - *latestMins*60
	}

	deriver := speed.NewDeriver(net, matching.NewMatcher(net, lg), speed.NewRouteIndex(net.Routes()), speed.Options{
		MatchMargin: cfg.MatchMargin,
		MaxBinSpan:  cfg.MaxBinSpan,
		UnitDivisor: cfg.SpeedUnitDivisor(),
		Since:       since,
		Workers:     cfg.Workers,
		Progress:    true,
	}, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matrix, stats, err := deriver.DeriveDaySpeeds(ctx, dayID, sources, cfg.IntervalMinutes)
	if err != nil {
		lg.Fatal("deriving speeds failed", zap.String("day", dayID), zap.Error(err))
	}
	lg.Info("derived speeds",
		zap.String("day", dayID),
		zap.Int("files", stats.Files),
		zap.Int("failed_files", stats.FailedFiles),
		zap.Int("pairs", stats.Pairs),
		zap.Int("accepted", stats.Accepted),
		zap.Any("rejected", stats.Rejected))

	kvDB, err := kv.Open(cfg.KVPath, &pebble.Options{})
	if err != nil {
		lg.Fatal("opening kv failed", zap.String("path", cfg.KVPath), zap.Error(err))
	}
	defer kvDB.Close()

	csvStore := storage.NewCSVMatrixStore(cfg.DataDir)
	store := storage.NewChainedMatrixStore(kvDB, csvStore)
	if err := store.SaveSpeedMatrix(matrix); err != nil {
		lg.Fatal("saving speed matrix failed", zap.Error(err))
	}
	lg.Info("speed matrix saved", zap.String("csv", csvStore.Path(dayID, cfg.IntervalMinutes)))
}
