package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"lintang/trafficspeed/pkg/datastructure"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	SpeedUnitMPH = "mph"
	SpeedUnitKMH = "kmh"

	kmPerMile = 1.60934
)

type Config struct {
	GraphDir string `validate:"required"`
	DataDir  string `validate:"required"`
	KVPath   string `validate:"required"`
	Location *time.Location

	MatchMargin     float64 `validate:"gt=0,lt=1"`
	IntervalMinutes int     `validate:"gt=0,lte=1440"`
	MaxBinSpan      int     `validate:"gte=0"`
	SpeedUnit       string  `validate:"oneof=mph kmh"`

	HistoryOffsets        []int     `validate:"required,min=1"`
	HistoryWeights        []float64 `validate:"required,min=1,dive,gte=0"`
	FallbackOffsets       []int
	MotorwayMultiplier    float64 `validate:"gt=0"`
	SpeedLimitGranularity float64 `validate:"gt=0"`
	DefaultSpeedLimit     float64 `validate:"gt=0"`

	Workers    int `validate:"gte=1"`
	ListenAddr string
	Debug      bool
}

// Default nilai default semua tunable.
func Default() *Config {
	return &Config{
		GraphDir:              "data/graph",
		DataDir:               "data",
		KVPath:                "trafficspeedDB",
		Location:              time.Local,
		MatchMargin:           0.01,
		IntervalMinutes:       5,
		MaxBinSpan:            1,
		SpeedUnit:             SpeedUnitMPH,
		HistoryOffsets:        []int{-1, -2, -7, -14},
		HistoryWeights:        []float64{0.4, 0.3, 0.2, 0.1},
		FallbackOffsets:       []int{-1, 1, -2, 2},
		MotorwayMultiplier:    4,
		SpeedLimitGranularity: 5,
		DefaultSpeedLimit:     30,
		Workers:               4,
		ListenAddr:            ":5000",
	}
}

// Load reads .env (ignored if missing) then TRAFFIC_* environment variables on top of Default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var err error

	cfg.GraphDir = getenvDefault("TRAFFIC_GRAPH_DIR", cfg.GraphDir)
	cfg.DataDir = getenvDefault("TRAFFIC_DATA_DIR", cfg.DataDir)
	cfg.KVPath = getenvDefault("TRAFFIC_KV_PATH", cfg.KVPath)
	cfg.SpeedUnit = strings.ToLower(getenvDefault("TRAFFIC_SPEED_UNIT", cfg.SpeedUnit))
	cfg.ListenAddr = getenvDefault("TRAFFIC_LISTEN_ADDR", cfg.ListenAddr)

	if cfg.MatchMargin, err = floatEnv("TRAFFIC_MATCH_MARGIN", cfg.MatchMargin); err != nil {
		return nil, err
	}
	if cfg.IntervalMinutes, err = intEnv("TRAFFIC_INTERVAL_MINUTES", cfg.IntervalMinutes); err != nil {
		return nil, err
	}
	if cfg.MaxBinSpan, err = intEnv("TRAFFIC_MAX_BIN_SPAN", cfg.MaxBinSpan); err != nil {
		return nil, err
	}
	if cfg.HistoryOffsets, err = intListEnv("TRAFFIC_HISTORY_OFFSETS", cfg.HistoryOffsets); err != nil {
		return nil, err
	}
	if cfg.HistoryWeights, err = floatListEnv("TRAFFIC_HISTORY_WEIGHTS", cfg.HistoryWeights); err != nil {
		return nil, err
	}
	if cfg.FallbackOffsets, err = intListEnv("TRAFFIC_FALLBACK_OFFSETS", cfg.FallbackOffsets); err != nil {
		return nil, err
	}
	if cfg.MotorwayMultiplier, err = floatEnv("TRAFFIC_MOTORWAY_MULTIPLIER", cfg.MotorwayMultiplier); err != nil {
		return nil, err
	}
	if cfg.SpeedLimitGranularity, err = floatEnv("TRAFFIC_SPEED_LIMIT_GRANULARITY", cfg.SpeedLimitGranularity); err != nil {
		return nil, err
	}
	if cfg.DefaultSpeedLimit, err = floatEnv("TRAFFIC_DEFAULT_SPEED_LIMIT", cfg.DefaultSpeedLimit); err != nil {
		return nil, err
	}
	if cfg.Workers, err = intEnv("TRAFFIC_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}

	if v := os.Getenv("TRAFFIC_DEBUG"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.Debug = true
		}
	}

	if tzName := os.Getenv("TRAFFIC_TZ"); tzName != "" {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("%w: TRAFFIC_TZ: %v", ErrInvalidConfig, err)
		}
		cfg.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate harus dipanggil sebelum pekerjaan apapun dimulai.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if datastructure.MinutesPerDay%c.IntervalMinutes != 0 {
		return fmt.Errorf("%w: interval %d does not divide %d", ErrInvalidConfig, c.IntervalMinutes, datastructure.MinutesPerDay)
	}
	if len(c.HistoryOffsets) != len(c.HistoryWeights) {
		return fmt.Errorf("%w: %d history offsets but %d weights", ErrInvalidConfig, len(c.HistoryOffsets), len(c.HistoryWeights))
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return nil
}

// SpeedUnitDivisor km per unit of the output speed.
func (c *Config) SpeedUnitDivisor() float64 {
	if c.SpeedUnit == SpeedUnitKMH {
		return 1
	}
	return kmPerMile
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, k, v)
	}
	return n, nil
}

func floatEnv(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, k, v)
	}
	return f, nil
}

// ParseIntList "-1,-7" -> [-1 -7].
func ParseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func ParseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func intListEnv(k string, def []int) ([]int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	out, err := ParseIntList(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, k, v)
	}
	return out, nil
}

func floatListEnv(k string, def []float64) ([]float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	out, err := ParseFloatList(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, k, v)
	}
	return out, nil
}
