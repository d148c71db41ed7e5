// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command castnet analyses the actor co-occurrence network of a movie
// dataset.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/castnet/pkg/logging"
	"github.com/AleutianAI/castnet/pkg/ux"
	"github.com/AleutianAI/castnet/services/castnet/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries state shared by every subcommand of one invocation.
type app struct {
	// Global flags
	configPath string
	logLevel   string
	output     string
	jsonLogs   bool

	cfg    *config.Config
	logger *logging.Logger
	stdout io.Writer
}

func (a *app) printer() *ux.Printer {
	return ux.NewPrinter(a.stdout)
}

// newRootCmd builds the command tree writing user-facing output to stdout.
func newRootCmd(stdout io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	root := &cobra.Command{
		Use:   "castnet",
		Short: "Actor co-occurrence network analysis",
		Long: `castnet builds the actor co-occurrence graph of a movie dataset,
ranks actors by degree and betweenness centrality, and finds actors with
similar genre profiles.

Configuration is read from --config (YAML), then CASTNET_* environment
variables, then command-line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.output, "output", "", "Console output style: full, minimal, machine")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "Write console logs as JSON")

	root.AddCommand(
		newETLCmd(a),
		newCentralityCmd(a),
		newSimilarCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newInitConfigCmd(a),
	)
	return root
}

// setup loads configuration and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.output != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(a.output))
	} else {
		ux.InitPersonality()
	}

	if cmd.Annotations["skipConfig"] == "true" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.jsonLogs {
		cfg.Logging.JSON = true
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "castnet",
		JSON:    cfg.Logging.JSON,
		Quiet:   cfg.Logging.Quiet,
	})
	a.logger.SetDefault()
	return nil
}
