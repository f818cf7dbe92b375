// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package briareuscfg holds the ambient configuration concerns: a
// convenience YAML loader for model.InputDesc, the dialect client factory,
// logger setup, and the exit-code sentinel used by cmd/briareus. The
// BRIAREUS_PAT credential table itself is parsed by package forge.
package briareuscfg

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/model"
)

// ExitError carries the process exit code assigned to each failure class:
// 1 input error, 2 forge error, 3 builder-output error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

const (
	ExitOK           = 0
	ExitInputError   = 1
	ExitForgeError   = 2
	ExitBuilderError = 3
)

// RunConfig is the ambient configuration a CLI invocation loads: forge
// connection tuning plus the path to the input document.
type RunConfig struct {
	InputPath            string        `yaml:"input_path"`
	ForgeConnectionLimit int           `yaml:"forge_connection_limit"`
	PerRepoDeadline      yamlDuration  `yaml:"per_repo_deadline"`
	LogFormat            string        `yaml:"log_format"` // "text" or "json"
	HydraOverridesPath   string        `yaml:"hydra_overrides_path"`
}

// yamlDuration lets run-config YAML express durations as plain strings
// ("30s") rather than requiring a nanosecond integer.
type yamlDuration struct {
	Value string
}

func (d *yamlDuration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshal(&d.Value)
}

func (d yamlDuration) MarshalYAML() (interface{}, error) {
	return d.Value, nil
}

// yamlInputDoc is the on-disk shape for model.InputDesc.
type yamlInputDoc struct {
	ProjectName string `yaml:"project_name"`
	Repos       []struct {
		Name          string `yaml:"name"`
		URL           string `yaml:"url"`
		MainBranch    string `yaml:"main_branch"`
		IsProjectRepo bool   `yaml:"is_project_repo"`
	} `yaml:"repos"`
	RepoLocs []struct {
		NetlocPattern string `yaml:"netloc_pattern"`
		APIHost       string `yaml:"api_host"`
	} `yaml:"repo_locs"`
	Branches  []string            `yaml:"branches"`
	Variables map[string][]string `yaml:"variables"`
	Reporting string              `yaml:"reporting"`
}

// LoadYAML reads a model.InputDesc from a YAML document at path.
func LoadYAML(path string) (model.InputDesc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.InputDesc{}, &ExitError{Code: ExitInputError, Err: fmt.Errorf("briareuscfg: reading %q: %w", path, err)}
	}
	var doc yamlInputDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.InputDesc{}, &ExitError{Code: ExitInputError, Err: fmt.Errorf("briareuscfg: parsing %q: %w", path, err)}
	}

	input := model.InputDesc{
		ProjectName: doc.ProjectName,
		Reporting:   model.ReportingSpec{Logic: doc.Reporting},
	}
	for _, r := range doc.Repos {
		input.Repos = append(input.Repos, model.RepoDesc{
			Name: r.Name, URL: r.URL, MainBranch: r.MainBranch, IsProjectRepo: r.IsProjectRepo,
		})
	}
	for _, l := range doc.RepoLocs {
		input.RepoLocs = append(input.RepoLocs, model.RepoLoc{
			NetlocPattern: l.NetlocPattern, APIHost: l.APIHost,
		})
	}
	for _, b := range doc.Branches {
		input.Branches = append(input.Branches, model.BranchDesc{Name: b})
	}
	for _, name := range sortedKeys(doc.Variables) {
		input.Variables = append(input.Variables, model.VariableDesc{Name: name, Values: doc.Variables[name]})
	}

	return input, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RepoLocs converts model.RepoLoc values into the forge package's leaf
// type, kept as a free function since forge must not import model.
func RepoLocs(locs []model.RepoLoc) []forge.RepoLoc {
	out := make([]forge.RepoLoc, len(locs))
	for i, l := range locs {
		out[i] = forge.RepoLoc{NetlocPattern: l.NetlocPattern, APIHost: l.APIHost}
	}
	return out
}
