package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/knn"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read into Config.
const EnvPrefix = "KNN"

// defaultEnvFile is loaded if present. An explicitly named file must exist.
const defaultEnvFile = ".env"

// Config validation errors
var (
	ErrInvalidRefNb       = errors.New("ref_nb must be positive")
	ErrInvalidQueryNb     = errors.New("query_nb must be positive")
	ErrInvalidDim         = errors.New("dim must be positive")
	ErrInvalidK           = errors.New("k must be between 1 and ref_nb")
	ErrInvalidIterations  = errors.New("iterations and cpu_iterations must be positive")
	ErrInvalidTileSize    = errors.New("tile_size must be positive")
	ErrInvalidSelectBlock = errors.New("select_block must be positive")
	ErrInvalidPrecision   = errors.New("precision must be positive")
	ErrInvalidLimit       = errors.New("memory_limit and transfer_limit must not be negative")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// Config holds the benchmark settings. Every field can be set from the
// environment (KNN_<NAME>) and overridden by the matching flag.
type Config struct {
	RefNb         int     `envconfig:"REF_NB" default:"4096"`
	QueryNb       int     `envconfig:"QUERY_NB" default:"4096"`
	Dim           int     `envconfig:"DIM" default:"68"`
	K             int     `envconfig:"K" default:"20"`
	Iterations    int     `envconfig:"ITERATIONS" default:"100"`
	CPUIterations int     `envconfig:"CPU_ITERATIONS" default:"1"`
	Seed          int64   `envconfig:"SEED" default:"2"`
	TileSize      int     `envconfig:"TILE_SIZE" default:"16"`
	SelectBlock   int     `envconfig:"SELECT_BLOCK" default:"256"`
	Workers       int     `envconfig:"WORKERS" default:"0"`
	MemoryLimit   int64   `envconfig:"MEMORY_LIMIT" default:"0"`
	TransferLimit int64   `envconfig:"TRANSFER_LIMIT" default:"0"`
	Precision     float64 `envconfig:"PRECISION" default:"0.001"`

	RefFile   string `envconfig:"REF_FILE"`
	QueryFile string `envconfig:"QUERY_FILE"`

	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		RefNb:         4096,
		QueryNb:       4096,
		Dim:           68,
		K:             20,
		Iterations:    100,
		CPUIterations: 1,
		Seed:          2,
		TileSize:      16,
		SelectBlock:   256,
		Precision:     knn.DefaultPrecision,
		LogFormat:     "text",
		LogLevel:      "info",
	}
}

// LoadConfig reads Config from the environment, after loading envFile into
// it. Variables already set in the environment win over the file. If
// envFile is empty, ".env" is loaded when it exists.
func LoadConfig(envFile string) (Config, error) {
	path := envFile
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.RefFile == "" && cfg.RefNb <= 0 {
		return ErrInvalidRefNb
	}
	if cfg.QueryFile == "" && cfg.QueryNb <= 0 {
		return ErrInvalidQueryNb
	}
	if cfg.RefFile == "" && cfg.QueryFile == "" && cfg.Dim <= 0 {
		return ErrInvalidDim
	}
	if cfg.K <= 0 || (cfg.RefFile == "" && cfg.K > cfg.RefNb) {
		return ErrInvalidK
	}
	if cfg.Iterations <= 0 || cfg.CPUIterations <= 0 {
		return ErrInvalidIterations
	}
	if cfg.TileSize <= 0 {
		return ErrInvalidTileSize
	}
	if cfg.SelectBlock <= 0 {
		return ErrInvalidSelectBlock
	}
	if cfg.Precision <= 0 {
		return ErrInvalidPrecision
	}
	if cfg.MemoryLimit < 0 || cfg.TransferLimit < 0 {
		return ErrInvalidLimit
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return ErrInvalidLogFormat
	}
	if _, ok := parseLevel(cfg.LogLevel); !ok {
		return ErrInvalidLogLevel
	}
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// NewLogger builds the logger selected by cfg. cfg must be valid.
func NewLogger(cfg *Config) *knn.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return knn.NewJSONLogger(level)
	}
	return knn.NewTextLogger(level)
}
