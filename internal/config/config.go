package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Analysis defaults, overridable per job.
	StrictIngest  bool
	StrictCompute bool
	Elevation     bool
	Chunks        domain.ChunkSpec

	// Classic restricts CLI ingestion to the time and zeta variables.
	Classic bool

	// DataRoot, when set, is the directory every job path must resolve under.
	DataRoot         string
	DatasetCacheSize int
	Parallelism      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	strictIngest, err := parseBool("STRICT_INGEST", true)
	if err != nil {
		return nil, err
	}
	strictCompute, err := parseBool("STRICT_COMPUTE", true)
	if err != nil {
		return nil, err
	}
	elevation, err := parseBool("ELEVATION", true)
	if err != nil {
		return nil, err
	}
	classic, err := parseBool("CLASSIC", false)
	if err != nil {
		return nil, err
	}

	chunks, err := parseChunks()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("DATASET_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	parallelism, err := parsePositiveInt("READ_PARALLELISM", 0)
	if err != nil {
		return nil, err
	}

	dataRoot := os.Getenv("DATA_ROOT")
	if dataRoot != "" {
		if dataRoot, err = filepath.Abs(dataRoot); err != nil {
			return nil, fmt.Errorf("invalid DATA_ROOT: %w", err)
		}
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "compoundness-jobs"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "compoundness-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "adcirc-compoundness"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		StrictIngest:     strictIngest,
		StrictCompute:    strictCompute,
		Elevation:        elevation,
		Chunks:           chunks,
		Classic:          classic,
		DataRoot:         dataRoot,
		DatasetCacheSize: cacheSize,
		Parallelism:      parallelism,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// parseChunks reads TIME_CHUNK and NODE_CHUNK. Each accepts "none", "auto"
// or a positive block length.
func parseChunks() (domain.ChunkSpec, error) {
	spec := domain.DefaultChunks()
	for key, dim := range map[string]string{"TIME_CHUNK": domain.AxisTime, "NODE_CHUNK": domain.AxisNode} {
		s, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		c, err := domain.ParseChunk(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		spec[dim] = c
	}
	return spec, nil
}
