// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/castnet/services/castnet/api"
	"github.com/AleutianAI/castnet/services/castnet/config"
	"github.com/AleutianAI/castnet/services/castnet/pipeline"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// stageFlags are the overrides shared by the batch commands. A flag only
// overrides the config when it was set on the command line.
type stageFlags struct {
	source     string
	outDir     string
	gcsBucket  string
	cache      bool
	sampleSize int
	seed       int64
	workers    int
	top        int
	by         string
	actor      string
	n          int
	metric     string
}

func (f *stageFlags) addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "Dataset location: path, file://, http(s):// or gs://")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Directory for CSV output")
	cmd.Flags().StringVar(&f.gcsBucket, "gcs-bucket", "", "Also upload tables to this Cloud Storage bucket")
	cmd.Flags().BoolVar(&f.cache, "cache", false, "Cache the downloaded dataset in BadgerDB")
}

func (f *stageFlags) addCentralityFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.sampleSize, "sample-size", "k", 0, "Betweenness pivots; 0 or less computes exact betweenness")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Pivot sampling seed")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Build and betweenness workers; 0 means one per CPU")
	cmd.Flags().IntVar(&f.top, "top", 0, "Number of top actors to report")
	cmd.Flags().StringVar(&f.by, "by", "", "Top-actor ranking: degree_centrality, betweenness_centrality, degree")
}

func (f *stageFlags) addSimilarityFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.actor, "actor", "a", "", "Query actor id, e.g. nm1165110")
	cmd.Flags().IntVarP(&f.n, "limit", "n", 0, "Number of similar actors")
	cmd.Flags().StringVar(&f.metric, "metric", "", "Distance metric: cosine or euclidean")
}

// apply copies the flags that were set into cfg and revalidates it.
func (f *stageFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	set := cmd.Flags().Changed
	if set("source") {
		cfg.Source.URI = f.source
	}
	if set("out") {
		cfg.Output.Dir = f.outDir
	}
	if set("gcs-bucket") {
		cfg.Output.GCSBucket = f.gcsBucket
	}
	if set("cache") {
		cfg.Cache.Enabled = f.cache
	}
	if set("sample-size") {
		cfg.Centrality.SampleSize = f.sampleSize
	}
	if set("seed") {
		cfg.Centrality.Seed = f.seed
	}
	if set("workers") {
		cfg.Graph.Workers = f.workers
		cfg.Centrality.Workers = f.workers
	}
	if set("top") {
		cfg.Centrality.TopK = f.top
	}
	if set("by") {
		cfg.Centrality.TopBy = f.by
	}
	if set("actor") {
		cfg.Similarity.QueryActorID = f.actor
	}
	if set("limit") {
		cfg.Similarity.TopN = f.n
	}
	if set("metric") {
		cfg.Similarity.Metric = f.metric
	}
	return cfg.Validate()
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

func newETLCmd(a *app) *cobra.Command {
	var flags stageFlags
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Flatten the dataset into actor, network and genre tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, &flags, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Report, error) {
				r, err := p.RunETL(ctx)
				return []*pipeline.Report{r}, err
			})
		},
	}
	flags.addSourceFlags(cmd)
	return cmd
}

func newCentralityCmd(a *app) *cobra.Command {
	var flags stageFlags
	cmd := &cobra.Command{
		Use:   "centrality",
		Short: "Compute degree and betweenness centrality of the co-occurrence graph",
		Long: `Builds the actor co-occurrence graph, keeps its largest connected
component, and writes network_centrality and network_edges tables.

Betweenness is estimated from --sample-size pivots drawn with --seed; the
same seed and sample size always give the same scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, &flags, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Report, error) {
				r, err := p.RunCentrality(ctx)
				return []*pipeline.Report{r}, err
			})
		},
	}
	flags.addSourceFlags(cmd)
	flags.addCentralityFlags(cmd)
	return cmd
}

func newSimilarCmd(a *app) *cobra.Command {
	var flags stageFlags
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find actors with the most similar genre profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, &flags, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Report, error) {
				r, err := p.RunSimilarity(ctx)
				return []*pipeline.Report{r}, err
			})
		},
	}
	flags.addSourceFlags(cmd)
	flags.addSimilarityFlags(cmd)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var flags stageFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ETL, centrality and similarity stages on one load of the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, &flags, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Report, error) {
				return p.RunAll(ctx)
			})
		},
	}
	flags.addSourceFlags(cmd)
	flags.addCentralityFlags(cmd)
	flags.addSimilarityFlags(cmd)
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		flags stageFlags
		addr  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Analyse the dataset once and serve the results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			ctx := cmd.Context()

			shutdown, err := initTelemetry(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			source, closeSource, err := openSource(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeSource()

			analysis, err := pipeline.New(a.cfg, source, nil, a.logger).Analyze(ctx)
			if errors.Is(err, pipeline.ErrNoInput) {
				a.printer().Warning("no input records; serving without an analysis")
			} else if err != nil {
				return err
			}

			return api.NewServer(analysis, a.logger).Run(ctx, a.cfg.Server.Addr)
		},
	}
	flags.addSourceFlags(cmd)
	flags.addCentralityFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :8080")
	return cmd
}

func newInitConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "init-config [path]",
		Short:       "Write a config file holding the defaults",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "castnet.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			a.printer().Success("wrote " + path)
			return nil
		},
	}
}

// =============================================================================
// STAGE RUNNER
// =============================================================================

type stageRunner func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Report, error)

// runStage wires the source, sink and telemetry, runs one or more stages,
// and prints their reports.
func (a *app) runStage(cmd *cobra.Command, flags *stageFlags, run stageRunner) error {
	if err := flags.apply(cmd, a.cfg); err != nil {
		return err
	}
	ctx := cmd.Context()

	shutdown, err := initTelemetry(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	source, closeSource, err := openSource(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeSource()

	sink, closeSink, err := openSink(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	p := pipeline.New(a.cfg, source, sink, a.logger)
	reports, err := run(ctx, p)
	printReports(a.printer(), reports)
	return err
}
