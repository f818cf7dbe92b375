// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cmd implements the CLI commands for briareus.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/briareus-ci/briareus/internal/briareuscfg"
)

var (
	appVersion string
	inputPath  string
	logFormat  string
	watch      bool
	status     bool
	parallel   int
)

var rootCmd = &cobra.Command{
	Use:     "briareus",
	Short:   "Meta-build orchestrator: gather forge facts, generate build configs, correlate results",
	Version: appVersion,
	RunE:    runGather,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&inputPath, "input", "briareus.yaml", "path to the YAML input document")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().IntVar(&parallel, "parallel", 4, "forge connection limit")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "re-run automatically when the input file changes")
	rootCmd.Flags().BoolVar(&status, "status", false, "print per-repo actor request/error counters after gathering")
}

// Execute runs the root command, exiting the process with the exit code
// assigned to each failure class.
func Execute(version string) {
	appVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		var exitErr *briareuscfg.ExitError
		if ok := asExitError(err, &exitErr); ok {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(briareuscfg.ExitForgeError)
	}
}

func asExitError(err error, target **briareuscfg.ExitError) bool {
	for err != nil {
		if e, ok := err.(*briareuscfg.ExitError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
