// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Centrality.SampleSize)
	assert.Equal(t, int64(42), cfg.Centrality.Seed)
	assert.Equal(t, "nm1165110", cfg.Similarity.QueryActorID)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Output.Dir, cfg.Output.Dir)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  uri: data/movies.jsonl
  timeout: 5s
centrality:
  sample_size: 0
  top_by: betweenness_centrality
output:
  dir: /tmp/castnet
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/movies.jsonl", cfg.Source.URI)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 0, cfg.Centrality.SampleSize)
	assert.Equal(t, "betweenness_centrality", cfg.Centrality.TopBy)
	assert.Equal(t, int64(42), cfg.Centrality.Seed, "absent fields keep their default")
	assert.Equal(t, "/tmp/castnet", cfg.Output.Dir)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("similarity:\n  metric: manhattan\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("source: [unclosed"), 0o600))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CASTNET_SOURCE_URI":    "gs://bucket/movies.json",
		"CASTNET_SAMPLE_SIZE":   "64",
		"CASTNET_SEED":          "7",
		"CASTNET_WORKERS":       "3",
		"CASTNET_CACHE_ENABLED": "true",
		"CASTNET_LOG_LEVEL":     "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))

	assert.Equal(t, "gs://bucket/movies.json", cfg.Source.URI)
	assert.Equal(t, 64, cfg.Centrality.SampleSize)
	assert.Equal(t, int64(7), cfg.Centrality.Seed)
	assert.Equal(t, 3, cfg.Graph.Workers)
	assert.Equal(t, 3, cfg.Centrality.Workers)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level, "empty values are ignored")

	env["CASTNET_SEED"] = "forty-two"
	assert.ErrorIs(t, ApplyEnv(Default(), lookup), ErrInvalidConfig)
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "castnet.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Centrality, cfg.Centrality)
	assert.Equal(t, Default().Source.Timeout, cfg.Source.Timeout)
}
