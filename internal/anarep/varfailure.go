// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package anarep

import (
	"github.com/briareus-ci/briareus/internal/bcgen"
	"github.com/briareus-ci/briareus/internal/model"
)

// detectVarFailures implements variable isolation: for every declared
// variable, group configurations that differ only in that variable's
// value; if one value's group is entirely failing while another value's
// group has no failures, and no configuration with that value succeeded
// anywhere, flag one VarFailure for the value and return the set of build
// names whose individual "failed" notification should be elided. Pending
// and bad-config results count neither as failures nor as successes.
func detectVarFailures(project string, cfgs []model.BldConfig, reports []StatusReport) ([]VarFailure, map[string]bool) {
	statusByName := make(map[string]Status, len(reports))
	for _, r := range reports {
		statusByName[r.BuildName] = r.Status
	}

	var varNames []string
	seenVar := make(map[string]bool)
	for _, c := range cfgs {
		for _, v := range c.BldVars {
			if !seenVar[v.Name] {
				seenVar[v.Name] = true
				varNames = append(varNames, v.Name)
			}
		}
	}

	var failures []VarFailure
	suppressed := make(map[string]bool)

	for _, varName := range varNames {
		groups := make(map[string]map[string][]model.BldConfig) // baseKey -> value -> configs
		succeeds := make(map[string]bool)                       // value -> some config with it succeeded
		flagged := make(map[string]bool)                        // value -> VarFailure already emitted
		for _, c := range cfgs {
			value, baseKey, ok := splitOnVariable(c, varName)
			if !ok {
				continue
			}
			if s := statusByName[buildName(c)]; s == StatusSucceeded || s == StatusInitialSuccess || s == StatusFixed {
				succeeds[value] = true
			}
			if groups[baseKey] == nil {
				groups[baseKey] = make(map[string][]model.BldConfig)
			}
			groups[baseKey][value] = append(groups[baseKey][value], c)
		}

		for _, byValue := range groups {
			if len(byValue) < 2 {
				continue
			}
			failingValues := make(map[string]bool)
			anySucceedsByValue := make(map[string]bool)
			for value, group := range byValue {
				allFail := true
				sawCountable := false
				for _, c := range group {
					name := buildName(c)
					switch statusByName[name] {
					case StatusBadConfig, StatusPending, StatusPendingCarried:
						// not counted toward variable-failure rollups either way
					case StatusFailed:
						sawCountable = true
					default:
						sawCountable = true
						allFail = false
						anySucceedsByValue[value] = true
					}
				}
				if allFail && sawCountable {
					failingValues[value] = true
				}
			}
			hasHealthySibling := false
			for value := range byValue {
				if !failingValues[value] && anySucceedsByValue[value] {
					hasHealthySibling = true
					break
				}
			}
			if !hasHealthySibling {
				continue
			}
			for value := range failingValues {
				if succeeds[value] {
					continue // another configuration with this value succeeded
				}
				if !flagged[value] {
					flagged[value] = true
					failures = append(failures, VarFailure{ProjectRepo: project, Variable: varName, Value: value})
				}
				for _, c := range byValue[value] {
					suppressed[buildName(c)] = true
				}
			}
		}
	}

	return failures, suppressed
}

// splitOnVariable returns the value varName is assigned in c and a base
// key identifying every other dimension of c, so configs differing only in
// varName land in the same group.
func splitOnVariable(c model.BldConfig, varName string) (value, baseKey string, ok bool) {
	var others []model.VarAssignment
	for _, v := range c.BldVars {
		if v.Name == varName {
			value = v.Value
			ok = true
			continue
		}
		others = append(others, v)
	}
	if !ok {
		return "", "", false
	}
	base := model.BldConfig{
		ProjectName: c.ProjectName,
		BranchType:  c.BranchType,
		BranchName:  c.BranchName,
		Strategy:    c.Strategy,
		Description: c.Description,
		Blds:        c.Blds,
		BldVars:     others,
	}
	return value, base.Key(), true
}

func buildName(c model.BldConfig) string {
	return bcgen.ConfigName(c)
}
