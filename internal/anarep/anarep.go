// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package anarep is the Analysis & Report Correlator: it consumes builder
// results, diffs them against a prior report to classify status
// transitions, detects variable-isolated failures, and produces
// notification actions from the fact base's data-driven owner/action
// rules.
package anarep

import (
	"sort"

	"github.com/briareus-ci/briareus/internal/bcgen"
	"github.com/briareus-ci/briareus/internal/facts"
	"github.com/briareus-ci/briareus/internal/model"
)

// Status is one configuration's classified outcome.
type Status string

const (
	StatusInitialSuccess Status = "initial_success"
	StatusSucceeded      Status = "succeeded"
	StatusFixed          Status = "fixed"
	StatusFailed         Status = "failed"
	StatusPending        Status = "pending"
	StatusBadConfig      Status = "bad_config"
	StatusPendingCarried Status = "pending_status" // builder knows of the config but has not run it, or has no result for a config with a prior status
)

// BuilderResult is one configuration's outcome as reported by the external
// build system, the JSON shape `briareus report --results` reads.
type BuilderResult struct {
	BuildName   string `json:"build_name"`
	NRTotal     int    `json:"nr_total"`
	NRSucceeded int    `json:"nr_succeeded"`
	NRFailed    int    `json:"nr_failed"`
	NRScheduled int    `json:"nr_scheduled"`
	CfgError    bool   `json:"cfg_error"`
	KnownNotRun bool   `json:"known_not_run"` // builder has registered this config but never scheduled it
}

// StatusReport is one configuration's classified status, current or prior.
type StatusReport struct {
	BuildName string
	Status    Status
	NRFailed  int
}

// VarFailure flags one value of a variable: every counted configuration
// with that value failed while a sibling configuration (same config,
// different value) succeeded.
type VarFailure struct {
	ProjectRepo string
	Variable    string
	Value       string
}

// CompletelyFailing fires when every non-pending configuration of a
// project is failing.
type CompletelyFailing struct {
	Project string
}

// Notify is one event's current notification state, current recipients and
// the subset already notified as of this run (SentTo), carried forward run
// to run so an unchanged notification is not redelivered.
type Notify struct {
	Recipients   []string
	Notification string
	SentTo       []string
}

// SendEmail is a deliverable notification: one whose recipients or content
// changed since the prior run, so it must actually go out. Actual delivery
// is an external collaborator via EmailSender.
type SendEmail struct {
	Recipients   []string
	Notification string
	SentTo       []string
}

// Report is the full output of one Correlate call.
type Report struct {
	Project           string
	StatusReports     []StatusReport
	VarFailures       []VarFailure
	CompletelyFailing []CompletelyFailing
	Notifications     []Notify
	Emails            []SendEmail
}

// EmailSender is the external email-dispatch collaborator.
type EmailSender interface {
	Send(ctx interface{ Done() <-chan struct{} }, msg SendEmail) error
}

// ProjectState is the persisted half of a project's correlation history:
// the prior run's classified statuses (for fixed/failed transition
// detection) and its notification state (for delivery suppression).
type ProjectState struct {
	StatusReports []StatusReport
	Notifications []Notify
}

// ReportStore persists a project's ProjectState for the next run's
// correlation.
type ReportStore interface {
	Load(project string) (ProjectState, error)
	Save(project string, state ProjectState) error
}

// classify derives one configuration's status from its (possibly absent)
// observed result and its (possibly absent) prior status.
func classify(observed *BuilderResult, prior *StatusReport) Status {
	switch {
	case observed == nil:
		if prior != nil {
			return StatusPendingCarried
		}
		return StatusPending
	case observed.CfgError:
		return StatusBadConfig
	case observed.KnownNotRun:
		return StatusPendingCarried
	case observed.NRTotal == 0:
		return StatusPending
	case observed.NRFailed > 0:
		return StatusFailed
	default: // all succeeded
		if prior == nil {
			return StatusInitialSuccess
		}
		if prior.Status == StatusFailed || prior.Status == StatusBadConfig {
			return StatusFixed
		}
		return StatusSucceeded
	}
}

// Correlate produces the full Report for one project's BldConfig set.
func Correlate(project string, cfgs []model.BldConfig, results []BuilderResult, prior ProjectState, fb []facts.Fact) Report {
	resultByName := make(map[string]*BuilderResult, len(results))
	for i := range results {
		resultByName[results[i].BuildName] = &results[i]
	}
	priorByName := make(map[string]*StatusReport, len(prior.StatusReports))
	for i := range prior.StatusReports {
		priorByName[prior.StatusReports[i].BuildName] = &prior.StatusReports[i]
	}

	reports := make([]StatusReport, 0, len(cfgs))
	failingCount, totalNonPending := 0, 0
	for _, c := range cfgs {
		name := bcgen.ConfigName(c)
		observed := resultByName[name]
		p := priorByName[name]
		status := classify(observed, p)
		nrFailed := 0
		if observed != nil {
			nrFailed = observed.NRFailed
		}
		reports = append(reports, StatusReport{BuildName: name, Status: status, NRFailed: nrFailed})
		if status != StatusPending && status != StatusPendingCarried {
			totalNonPending++
			if status == StatusFailed || status == StatusBadConfig {
				failingCount++
			}
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].BuildName < reports[j].BuildName })

	var completelyFailing []CompletelyFailing
	if totalNonPending > 0 && failingCount == totalNonPending {
		completelyFailing = append(completelyFailing, CompletelyFailing{Project: project})
	}

	varFailures, suppressed := detectVarFailures(project, cfgs, reports)

	notifications, emails := buildNotifications(fb, reports, suppressed, varFailures, completelyFailing, prior.Notifications)

	return Report{
		Project:           project,
		StatusReports:     reports,
		VarFailures:       varFailures,
		CompletelyFailing: completelyFailing,
		Notifications:     notifications,
		Emails:            emails,
	}
}
