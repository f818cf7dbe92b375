// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/briareus-ci/briareus/internal/bcgen"
	"github.com/briareus-ci/briareus/internal/briareuscfg"
	"github.com/briareus-ci/briareus/internal/builder/hydra"
	"github.com/briareus-ci/briareus/internal/facts"
	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/gatherer"
	"github.com/briareus-ci/briareus/internal/repoactor"
)

func runGather(cmd *cobra.Command, args []string) error {
	logger := briareuscfg.NewLogger(logFormat)
	slog.SetDefault(logger)

	if watch {
		return runWatch(cmd.Context())
	}
	return runOnce(cmd.Context())
}

func runOnce(ctx context.Context) error {
	input, err := briareuscfg.LoadYAML(inputPath)
	if err != nil {
		return err
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
	jobsets := hydra.Jobsets(input, cfgs, nil)

	fmt.Println(facts.Render(fb))
	for _, name := range hydra.SortedNames(jobsets) {
		fmt.Printf("jobset %s: %d input(s)\n", name, len(jobsets[name].Inputs))
	}

	if status {
		for _, s := range registry.Stats(ctx) {
			fmt.Printf("actor %s: %d request(s), %d error(s), last active %s\n",
				s.Name, s.RequestCount, s.ErrorCount, s.LastActivityAt.Format("15:04:05"))
		}
	}
	return nil
}

// runWatch re-runs the pipeline whenever the input file changes, since
// Briareus has no push-notification source of its own to drive this from.
func runWatch(ctx context.Context) error {
	if err := runOnce(ctx); err != nil {
		slog.Error("initial run failed", "err", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitInputError, Err: fmt.Errorf("watch: %w", err)}
	}
	defer fsw.Close()

	if err := fsw.Add(inputPath); err != nil {
		return &briareuscfg.ExitError{Code: briareuscfg.ExitInputError, Err: fmt.Errorf("watch: %w", err)}
	}

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slog.Info("input changed, re-running", "file", ev.Name)
			if err := runOnce(ctx); err != nil {
				slog.Error("run failed", "err", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
