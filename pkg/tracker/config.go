package tracker

import (
	"os"
	"strconv"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/prediction/bias"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Hard cap on any per-stage worker count. Configured values outside
// [1, maxWorkers] are clamped with a warning.
const maxWorkers = 100

type Config struct {
	QueueName string `yaml:"queue_name"`

	// QueueCapacity bounds the receive and acknowledge channels and the
	// match pool's queue. The archive channel is sized three orders of
	// magnitude larger so audit archiving survives bursts.
	QueueCapacity int `yaml:"queue_capacity"`

	BatchSize int `yaml:"batch_size"`

	NumConsumers          int `yaml:"num_consumers"`
	NumDeserializeWorkers int `yaml:"num_deserialize_workers"`
	NumMatchWorkers       int `yaml:"num_match_workers"`

	StatusInterval time.Duration `yaml:"status_interval"`

	// LogFrequency is how many processed reports between progress log lines.
	LogFrequency int64 `yaml:"log_frequency"`

	// MaxDistanceFromSegment is the diversion matching threshold: a report
	// further than this many metres from every segment of a diversion does
	// not match it.
	MaxDistanceFromSegment float64 `yaml:"max_distance_from_segment"`

	// ArchiveTopic is the redis channel raw payloads are republished to for
	// the audit trail. Empty disables the archive branch entirely.
	ArchiveTopic string `yaml:"archive_topic"`

	BiasAdjuster bias.Config `yaml:"bias_adjuster"`
}

func DefaultConfig() Config {
	return Config{
		QueueName: "avl-queue",

		QueueCapacity: 350,
		BatchSize:     200,

		NumConsumers:          1,
		NumDeserializeWorkers: 1,
		NumMatchWorkers:       1,

		StatusInterval: 60 * time.Second,
		LogFrequency:   10000,

		MaxDistanceFromSegment: 60,

		BiasAdjuster: bias.Config{
			Name:      "linear",
			Rate:      0.0006,
			Direction: 1,
		},
	}
}

// LoadConfig layers an optional yaml file and environment overrides on top
// of the defaults, then clamps the worker counts.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		configYaml, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}

		if err := yaml.Unmarshal(configYaml, &config); err != nil {
			return config, err
		}
	}

	applyEnvironmentOverrides(&config)

	config.NumConsumers = clampWorkers("num_consumers", config.NumConsumers)
	config.NumDeserializeWorkers = clampWorkers("num_deserialize_workers", config.NumDeserializeWorkers)
	config.NumMatchWorkers = clampWorkers("num_match_workers", config.NumMatchWorkers)

	if config.QueueCapacity < 1 {
		config.QueueCapacity = DefaultConfig().QueueCapacity
	}

	return config, nil
}

func applyEnvironmentOverrides(config *Config) {
	if val := os.Getenv("FLEETWATCH_TRACKER_QUEUE_NAME"); val != "" {
		config.QueueName = val
	}

	if val := os.Getenv("FLEETWATCH_TRACKER_QUEUE_CAPACITY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.QueueCapacity = parsed
		}
	}

	if val := os.Getenv("FLEETWATCH_TRACKER_MATCH_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.NumMatchWorkers = parsed
		}
	}

	if val := os.Getenv("FLEETWATCH_TRACKER_STATUS_INTERVAL"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.StatusInterval = parsed
		}
	}

	if val := os.Getenv("FLEETWATCH_TRACKER_MAX_DISTANCE_FROM_SEGMENT"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MaxDistanceFromSegment = parsed
		}
	}

	if val := os.Getenv("FLEETWATCH_TRACKER_ARCHIVE_TOPIC"); val != "" {
		config.ArchiveTopic = val
	}
}

func clampWorkers(name string, value int) int {
	if value < 1 {
		log.Warn().Str("option", name).Int("value", value).Msg("Worker count below 1, using 1")
		return 1
	}
	if value > maxWorkers {
		log.Warn().Str("option", name).Int("value", value).Int("max", maxWorkers).Msg("Worker count above cap, clamping")
		return maxWorkers
	}

	return value
}
