// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/briareus-ci/briareus/internal/anarep"
	"github.com/briareus-ci/briareus/internal/bcgen"
	"github.com/briareus-ci/briareus/internal/briareuscfg"
	"github.com/briareus-ci/briareus/internal/facts"
	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/gatherer"
	"github.com/briareus-ci/briareus/internal/repoactor"
)

var (
	resultsPath string
	reportDir   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Correlate builder results against the prior report and emit notifications",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&resultsPath, "results", "", "path to a JSON []anarep.BuilderResult document")
	reportCmd.Flags().StringVar(&reportDir, "report-store", ".briareus-reports", "directory holding per-project prior-report JSON files")
	_ = reportCmd.MarkFlagRequired("results")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	logger := briareuscfg.NewLogger(logFormat)
	slog.SetDefault(logger)

	ctx := cmd.Context()

	input, err := briareuscfg.LoadYAML(inputPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resultsPath)
	if err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitBuilderError, Err: fmt.Errorf("report: reading %q: %w", resultsPath, err)}
	}
	var results []anarep.BuilderResult
	if err := json.Unmarshal(data, &results); err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitBuilderError, Err: fmt.Errorf("report: parsing %q: %w", resultsPath, err)}
	}

	creds := forge.LoadCredentialsFromEnv()
	factory := briareuscfg.NewClientFactory(creds)
	registry := repoactor.NewRegistry(factory, briareuscfg.RepoLocs(input.RepoLocs))

	gathered, err := gatherer.Run(ctx, input, registry, gatherer.Options{ForgeConnectionLimit: parallel})
	if err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitForgeError, Err: err}
	}
	fb := facts.Build(gathered, input)
	cfgs := bcgen.Generate(fb, input)

	store := anarep.NewFileReportStore(reportDir)
	prior, err := store.Load(input.ProjectName)
	if err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitBuilderError, Err: err}
	}

	report := anarep.Correlate(input.ProjectName, cfgs, results, prior, fb)

	newState := anarep.ProjectState{StatusReports: report.StatusReports, Notifications: report.Notifications}
	if err := store.Save(input.ProjectName, newState); err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitBuilderError, Err: err}
	}

	for _, sr := range report.StatusReports {
		fmt.Printf("%s: %s\n", sr.BuildName, sr.Status)
	}
	for _, vf := range report.VarFailures {
		fmt.Printf("var-failure: %s/%s=%s\n", vf.ProjectRepo, vf.Variable, vf.Value)
	}
	for _, cf := range report.CompletelyFailing {
		fmt.Printf("completely-failing: %s\n", cf.Project)
	}
	for _, n := range report.Notifications {
		fmt.Printf("notify %v: %s\n", n.Recipients, n.Notification)
	}
	for _, e := range report.Emails {
		fmt.Printf("send-email %v: %s\n", e.Recipients, e.Notification)
	}

	return nil
}
