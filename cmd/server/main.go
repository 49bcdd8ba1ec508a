package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/cockroachdb/pebble"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/engine/prediction"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/logger"
	"lintang/trafficspeed/pkg/networkio"
	"lintang/trafficspeed/pkg/server/rest"
	"lintang/trafficspeed/pkg/server/rest/service"
	"lintang/trafficspeed/pkg/storage"
)

var listenAddr = flag.String("listenaddr", "", "server listen address, default dari TRAFFIC_LISTEN_ADDR")

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
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
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
	}, lg)
	speedSvc := service.NewSpeedService(net, predictor, kvDB, kvDB, prediction.ParamsFromConfig(cfg), cfg.Location, lg)

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rest.SpeedRouter(r, speedSvc, m, cfg.IntervalMinutes)

	lg.Sugar().Infof("server started at %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}
