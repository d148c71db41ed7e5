// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads castnet configuration from YAML with environment
// overrides.
//
// Precedence, lowest first: Default(), the YAML file, CASTNET_* environment
// variables, then command-line flags (applied by the CLI).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound is returned when an explicit config path does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DefaultDatasetURI is the public movie dataset used when no source is set.
const DefaultDatasetURI = "https://github.com/cbuntain/umd.inst414/blob/main/data/imdb_movies_2000to2022.prolific.json?raw=true"

var configValidate = validator.New()

// Config is the full castnet configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Cache      CacheConfig      `yaml:"cache"`
	Graph      GraphConfig      `yaml:"graph"`
	Centrality CentralityConfig `yaml:"centrality"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Server     ServerConfig     `yaml:"server"`
}

// SourceConfig selects where movie records come from.
type SourceConfig struct {
	// URI is a local path, file://, http(s):// or gs:// location.
	URI string `yaml:"uri" validate:"required"`

	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// GCSCredentialsFile is a service account key for gs:// sources.
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
}

// CacheConfig controls the BadgerDB payload cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir" validate:"required_if=Enabled true"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

// GraphConfig controls graph building.
type GraphConfig struct {
	// Workers for the partition-and-merge build; 0 means one per CPU.
	Workers  int `yaml:"workers" validate:"gte=0"`
	MaxNodes int `yaml:"max_nodes" validate:"gt=0"`
	MaxEdges int `yaml:"max_edges" validate:"gt=0"`
}

// CentralityConfig controls the centrality engine and its report.
type CentralityConfig struct {
	// SampleSize is the number of betweenness pivots; <= 0 means exact.
	SampleSize int   `yaml:"sample_size"`
	Seed       int64 `yaml:"seed"`

	// Workers bounds concurrent pivot chunks; 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`

	// TopK is how many actors are reported after a run.
	TopK  int    `yaml:"top_k" validate:"gte=0"`
	TopBy string `yaml:"top_by" validate:"oneof=degree_centrality betweenness_centrality degree"`
}

// SimilarityConfig controls genre similarity.
type SimilarityConfig struct {
	QueryActorID string `yaml:"query_actor_id"`
	TopN         int    `yaml:"top_n" validate:"gte=1"`
	Metric       string `yaml:"metric" validate:"oneof=cosine euclidean"`
}

// OutputConfig selects where tables are written.
type OutputConfig struct {
	Dir                string `yaml:"dir" validate:"required"`
	GCSBucket          string `yaml:"gcs_bucket"`
	GCSPrefix          string `yaml:"gcs_prefix"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
}

// LoggingConfig controls pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
	Quiet bool   `yaml:"quiet"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	Environment    string `yaml:"environment"`

	// PushgatewayURL, when set, receives run metrics after each batch run.
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
}

// ServerConfig controls the report API.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URI:     DefaultDatasetURI,
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     filepath.Join("data", ".cache"),
			TTL:     24 * time.Hour,
		},
		Graph: GraphConfig{
			Workers:  0,
			MaxNodes: 5_000_000,
			MaxEdges: 100_000_000,
		},
		Centrality: CentralityConfig{
			SampleSize: 500,
			Seed:       42,
			Workers:    0,
			TopK:       10,
			TopBy:      "degree_centrality",
		},
		Similarity: SimilarityConfig{
			QueryActorID: "nm1165110",
			TopN:         10,
			Metric:       "cosine",
		},
		Output: OutputConfig{
			Dir: "data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			Environment:    "development",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads configuration.
//
// Description:
//
//	Starts from Default(). A non-empty path is read as YAML over the
//	defaults; fields absent from the file keep their default. CASTNET_*
//	environment variables are then applied and the result validated.
//
// Outputs:
//
//	*Config - The loaded configuration.
//	error - ErrConfigNotFound, a YAML error, or ErrInvalidConfig.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read the config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes Default() as YAML to path, creating parent directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envOverrides maps each supported variable to the field it sets.
var envOverrides = map[string]func(c *Config, v string) error{
	"CASTNET_SOURCE_URI":      func(c *Config, v string) error { c.Source.URI = v; return nil },
	"CASTNET_OUTPUT_DIR":      func(c *Config, v string) error { c.Output.Dir = v; return nil },
	"CASTNET_GCS_BUCKET":      func(c *Config, v string) error { c.Output.GCSBucket = v; return nil },
	"CASTNET_LOG_LEVEL":       func(c *Config, v string) error { c.Logging.Level = v; return nil },
	"CASTNET_QUERY_ACTOR":     func(c *Config, v string) error { c.Similarity.QueryActorID = v; return nil },
	"CASTNET_SERVER_ADDR":     func(c *Config, v string) error { c.Server.Addr = v; return nil },
	"CASTNET_PUSHGATEWAY_URL": func(c *Config, v string) error { c.Telemetry.PushgatewayURL = v; return nil },
	"CASTNET_SAMPLE_SIZE":     intSetter(func(c *Config, n int) { c.Centrality.SampleSize = n }),
	"CASTNET_WORKERS": intSetter(func(c *Config, n int) {
		c.Graph.Workers = n
		c.Centrality.Workers = n
	}),
	"CASTNET_SEED": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Centrality.Seed = n
		return nil
	},
	"CASTNET_CACHE_ENABLED": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Cache.Enabled = b
		return nil
	},
}

func intSetter(set func(c *Config, n int)) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

// ApplyEnv applies CASTNET_* overrides found through lookup.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for key, set := range envOverrides {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err)
		}
	}
	return nil
}
