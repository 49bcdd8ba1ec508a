package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/kv"
	"lintang/trafficspeed/pkg/logger"
	"lintang/trafficspeed/pkg/networkio"
	"lintang/trafficspeed/pkg/osmparser"
)

var (
	mapFile      = flag.String("f", "buffalo.osm.pbf", "openstreetmap file buat road network bus route")
	nameContains = flag.String("name", "", "hanya route relation yang namanya mengandung string ini")
	nameExcludes = flag.String("exclude", "", "daftar nama route yang di-skip, dipisah koma")
	skipKV       = flag.Bool("skip-kv", false, "jangan bikin h3 segment index di kv")
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

	excludes := []string{}
	for _, s := range strings.Split(*nameExcludes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			excludes = append(excludes, s)
		}
	}

	parser := osmparser.NewOSMParser(osmparser.Options{
		NameContains: *nameContains,
		NameExcludes: excludes,
		SpeedUnit:    cfg.SpeedUnit,
		Granularity:  cfg.SpeedLimitGranularity,
		Progress:     true,
	}, lg)

	ctx := context.Background()
	res, err := parser.Parse(ctx, *mapFile)
	if err != nil {
		lg.Fatal("parsing osm failed", zap.String("file", *mapFile), zap.Error(err))
	}

	if err := networkio.WriteTables(cfg.GraphDir, res.Tables, res.SegmentSpeedLimits); err != nil {
		lg.Fatal("writing graph tables failed", zap.Error(err))
	}
	containerPath := filepath.Join(cfg.GraphDir, networkio.ContainerFile)
	if err := networkio.SaveToFile(containerPath, res.Tables); err != nil {
		lg.Fatal("writing graph container failed", zap.Error(err))
	}
	lg.Info("road network saved", zap.String("dir", cfg.GraphDir), zap.String("container", containerPath))

	if *skipKV {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.KVPath), 0o755); err != nil {
		lg.Fatal("creating kv dir failed", zap.Error(err))
	}
	kvDB, err := kv.Open(cfg.KVPath, &pebble.Options{})
	if err != nil {
		lg.Fatal("opening kv failed", zap.String("path", cfg.KVPath), zap.Error(err))
	}
	defer kvDB.Close()

	net := datastructure.NewRoadNetwork(res.Tables)
	if err := kvDB.CreateSegmentKV(ctx, net, cfg.Workers); err != nil {
		lg.Fatal("building segment index failed", zap.Error(err))
	}
	lg.Sugar().Infof("\nh3 segment index ready for %d segments", net.NumSegments())
}
