package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/engine/prediction"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/logger"
	"lintang/trafficspeed/pkg/networkio"
	"lintang/trafficspeed/pkg/storage"
)

var (
	at       = flag.String("at", "", "waktu target \"YYYY-MM-DD HH:MM:SS\", default sekarang")
	wholeDay = flag.Bool("day", false, "prediksi semua bin di tanggal target")
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

	target := time.Now().In(cfg.Location)
	if *at != "" {
		target, err = time.ParseInLocation(time.DateTime, *at, cfg.Location)
		if err != nil {
			lg.Fatal("bad -at", zap.String("at", *at), zap.Error(err))
		}
	}

	net, err := networkio.LoadNetwork(cfg.GraphDir, cfg.SpeedLimitGranularity)
	if err != nil {
		lg.Fatal("loading road network failed", zap.String("dir", cfg.GraphDir), zap.Error(err))
	}

	kvDB, err := kv.Open(cfg.KVPath, &pebble.Options{})
	if err != nil {
		lg.Fatal("opening kv failed", zap.String("path", cfg.KVPath), zap.Error(err))
	}
	defer kvDB.Close()

	history := storage.NewChainedMatrixStore(kvDB, storage.NewCSVMatrixStore(cfg.DataDir))
	predictor := prediction.NewPredictor(net, history, prediction.Options{
		GapFill: prediction.GapFillOptions{
			MotorwayMultiplier: cfg.MotorwayMultiplier,
			DefaultSpeedLimit:  cfg.DefaultSpeedLimit,
		},
		Workers:  cfg.Workers,
		Location: cfg.Location,
		Progress: *wholeDay,
	}, lg)
	params := prediction.ParamsFromConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []*datastructure.PredictionMap
	if *wholeDay {
		results, err = predictor.PredictDay(ctx, target, cfg.IntervalMinutes, params)
	} else {
		var p *datastructure.PredictionMap
		p, err = predictor.Predict(ctx, target, cfg.IntervalMinutes, params)
		results = append(results, p)
	}
	if err != nil {
		lg.Fatal("prediction failed", zap.Time("target", target), zap.Error(err))
	}

	jsonStore := storage.NewPredictionJSONStore(cfg.DataDir)
	for _, p := range results {
		path, err := jsonStore.SavePrediction(p, cfg.Location)
		if err != nil {
			lg.Fatal("writing prediction json failed", zap.Int("bin", p.Bin), zap.Error(err))
		}
		if err := kvDB.SavePrediction(p, cfg.Location); err != nil {
			lg.Warn("caching prediction in kv failed", zap.Int("bin", p.Bin), zap.Error(err))
		}
		lg.Debug("prediction saved", zap.String("path", path))
	}
	lg.Sugar().Infof("saved %d prediction(s) for %s", len(results), datastructure.DayID(target))
}
