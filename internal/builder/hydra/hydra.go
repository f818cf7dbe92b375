// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package hydra is the Builder Adapter for the Hydra continuous-integration
// system: it serializes a BldConfig set into Hydra's JSON jobset
// descriptor.
package hydra

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/briareus-ci/briareus/internal/bcgen"
	"github.com/briareus-ci/briareus/internal/model"
)

// JobsetInput is one named input of a jobset ("<repo>-src", "variant", or a
// declared variable name).
type JobsetInput struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Jobset is one Hydra jobset descriptor.
type Jobset struct {
	CheckInterval    int                    `json:"checkinterval"`
	Description      string                 `json:"description"`
	KeepNR           int                    `json:"keepnr"`
	NixExprInput     string                 `json:"nixexprinput"`
	NixExprPath      string                 `json:"nixexprpath"`
	SchedulingShares int                    `json:"schedulingshares"`
	Inputs           map[string]JobsetInput `json:"inputs"`
}

// Overrides is the caller-supplied JSON merged into each jobset's fields
// and, last, into its inputs map, so an override can replace individual
// inputs without restating the whole map.
type Overrides struct {
	Jobset map[string]json.RawMessage `json:"jobset"`
}

// Jobsets computes one jobset per BldConfig, keyed by its canonical name.
func Jobsets(input model.InputDesc, cfgs []model.BldConfig, overrides *Overrides) map[string]Jobset {
	projectRepo, _ := input.ProjectRepo()
	out := make(map[string]Jobset, len(cfgs))

	for _, c := range cfgs {
		name := bcgen.ConfigName(c)
		js := Jobset{
			CheckInterval:    600,
			Description:      describe(c),
			KeepNR:           3,
			NixExprInput:     projectRepo.Name + "-src",
			NixExprPath:      "./release.nix",
			SchedulingShares: 1,
			Inputs:           make(map[string]JobsetInput),
		}
		for _, bld := range c.Blds {
			repoURL := repoURLFor(input, bld.RepoName)
			js.Inputs[bld.RepoName+"-src"] = JobsetInput{
				Type:  "git",
				Value: fmt.Sprintf("%s %s", repoURL, bld.Ref),
			}
		}
		js.Inputs["variant"] = JobsetInput{Type: "string", Value: variantString(c)}
		for _, v := range c.BldVars {
			js.Inputs[v.Name] = JobsetInput{Type: "string", Value: v.Value}
		}

		if overrides != nil {
			js = applyOverrides(js, overrides)
		}
		out[name] = js
	}
	return out
}

func repoURLFor(input model.InputDesc, name string) string {
	for _, r := range input.Repos {
		if r.Name == name {
			return r.URL
		}
	}
	return ""
}

// variantString builds the |branch=<b>|strategy=<s>[|PR] descriptor.
func variantString(c model.BldConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "|branch=%s|strategy=%s", c.BranchName, c.Strategy)
	if c.BranchType == model.BranchTypePullReq {
		b.WriteString("|PR")
	}
	return b.String()
}

func describe(c model.BldConfig) string {
	switch c.Description.Kind {
	case model.DescriptionPRSolo:
		return fmt.Sprintf("PR on %s: %s", c.Description.Repo, c.Description.Branch)
	case model.DescriptionPRGrouped:
		return fmt.Sprintf("Grouped PR: %s", c.Description.Branch)
	case model.DescriptionMainBranch:
		return fmt.Sprintf("Main branch: %s", c.Description.Branch)
	default:
		return fmt.Sprintf("Branch: %s", c.Description.Branch)
	}
}

// applyOverrides merges overridden fields first, then overridden inputs, so
// an inputs override always wins over a same-named field default.
func applyOverrides(js Jobset, overrides *Overrides) Jobset {
	if overrides == nil || overrides.Jobset == nil {
		return js
	}
	if raw, ok := overrides.Jobset["checkinterval"]; ok {
		_ = json.Unmarshal(raw, &js.CheckInterval)
	}
	if raw, ok := overrides.Jobset["keepnr"]; ok {
		_ = json.Unmarshal(raw, &js.KeepNR)
	}
	if raw, ok := overrides.Jobset["nixexprpath"]; ok {
		_ = json.Unmarshal(raw, &js.NixExprPath)
	}
	if raw, ok := overrides.Jobset["description"]; ok {
		_ = json.Unmarshal(raw, &js.Description)
	}
	if raw, ok := overrides.Jobset["nixexprinput"]; ok {
		_ = json.Unmarshal(raw, &js.NixExprInput)
	}
	if raw, ok := overrides.Jobset["schedulingshares"]; ok {
		_ = json.Unmarshal(raw, &js.SchedulingShares)
	}
	if raw, ok := overrides.Jobset["inputs"]; ok {
		var extra map[string]JobsetInput
		if err := json.Unmarshal(raw, &extra); err == nil {
			for k, v := range extra {
				js.Inputs[k] = v
			}
		}
	}
	return js
}

// SortedNames returns every jobset name in jobsets, sorted, useful for
// deterministic rendering.
func SortedNames(jobsets map[string]Jobset) []string {
	names := make([]string, 0, len(jobsets))
	for n := range jobsets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
