// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package anarep

import (
	"sort"
	"strings"

	"github.com/briareus-ci/briareus/internal/facts"
)

// ownerRule is one row of the data-driven reporting logic: which events an
// owner wants to hear about. Parsed from ReportingSpec.Logic lines of the
// form "owner <email> <event1>,<event2>,…", kept intentionally simple since
// the lookup only needs to stay data-driven and evaluated dynamically, not
// bound to any particular input grammar.
type ownerRule struct {
	Owner  string
	Events map[string]bool
}

// parseReportingLogic is a minimal parser for the Reporting.Logic text; an
// empty or malformed line is skipped rather than treated as fatal, since
// Reporting configuration is advisory (no notification is still a valid,
// if quiet, outcome).
func parseReportingLogic(logic string) []ownerRule {
	var rules []ownerRule
	for _, line := range strings.Split(logic, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "owner" {
			continue
		}
		events := make(map[string]bool)
		for _, e := range strings.Split(fields[2], ",") {
			events[strings.TrimSpace(e)] = true
		}
		rules = append(rules, ownerRule{Owner: fields[1], Events: events})
	}
	return rules
}

// ownerRulesFromFacts reads project_owner(Owner)/action_type(Owner,Event)
// style facts. It is the only rule source buildNotifications consults;
// ReportingSpec.Logic text is not read unless a caller has rendered it into
// such facts.
func ownerRulesFromFacts(fb []facts.Fact) []ownerRule {
	owners := make(map[string]map[string]bool)
	for _, f := range fb {
		s := f.String()
		switch {
		case strings.HasPrefix(s, "project_owner("):
			owner := extractFirstArg(s)
			if owner != "" {
				if owners[owner] == nil {
					owners[owner] = make(map[string]bool)
				}
			}
		case strings.HasPrefix(s, "action_type("):
			owner, event := extractTwoArgs(s)
			if owner != "" {
				if owners[owner] == nil {
					owners[owner] = make(map[string]bool)
				}
				owners[owner][event] = true
			}
		}
	}
	var rules []ownerRule
	for owner, events := range owners {
		rules = append(rules, ownerRule{Owner: owner, Events: events})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Owner < rules[j].Owner })
	return rules
}

func extractFirstArg(literal string) string {
	args := argsOf(literal)
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func extractTwoArgs(literal string) (string, string) {
	args := argsOf(literal)
	if len(args) < 2 {
		return "", ""
	}
	return args[0], args[1]
}

// argsOf does a minimal unquoted split of a fact literal's argument list;
// the fact grammar only ever nests plain quoted strings or the bare
// project_primary atom, so a comma split after trimming quotes suffices
// without a full parser.
func argsOf(literal string) []string {
	open := strings.Index(literal, "(")
	shut := strings.LastIndex(literal, ")")
	if open < 0 || shut < 0 || shut <= open {
		return nil
	}
	inner := literal[open+1 : shut]
	parts := strings.Split(inner, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return out
}

// buildNotifications selects recipients for each fired event
// (main_good/main_broken/variable_failing/new_pending/…), skipping
// individual failed-config notifications whose build name is covered by a
// VarFailure. Each event is diffed against priorNotifications by its
// Notification key: an event whose recipient set is unchanged from the
// prior run is suppressed (no SendEmail emitted, since it was already
// delivered and nothing changed); a new or recipient-changed event is
// deliverable and becomes both a Notify (current state, carried forward for
// the next run's diff) and a SendEmail (the one actually dispatched).
func buildNotifications(fb []facts.Fact, reports []StatusReport, suppressed map[string]bool, varFailures []VarFailure, completelyFailing []CompletelyFailing, priorNotifications []Notify) ([]Notify, []SendEmail) {
	rules := ownerRulesFromFacts(fb)
	priorByKey := make(map[string]*Notify, len(priorNotifications))
	for i := range priorNotifications {
		priorByKey[priorNotifications[i].Notification] = &priorNotifications[i]
	}

	var notifications []Notify
	var emails []SendEmail

	recipientsFor := func(event string) []string {
		var recips []string
		for _, r := range rules {
			if r.Events[event] {
				recips = append(recips, r.Owner)
			}
		}
		sort.Strings(recips)
		return recips
	}

	emit := func(notification string, recips []string) {
		if len(recips) == 0 {
			return
		}
		prior, seen := priorByKey[notification]
		if seen && sameRecipients(prior.SentTo, recips) {
			notifications = append(notifications, Notify{Recipients: recips, Notification: notification, SentTo: prior.SentTo})
			return
		}
		notifications = append(notifications, Notify{Recipients: recips, Notification: notification, SentTo: recips})
		emails = append(emails, SendEmail{Recipients: recips, Notification: notification, SentTo: recips})
	}

	for _, r := range reports {
		if suppressed[r.BuildName] {
			continue
		}
		var event string
		switch r.Status {
		case StatusFixed:
			event = "main_good"
		case StatusFailed, StatusBadConfig:
			event = "main_broken"
		case StatusPending:
			event = "new_pending"
		default:
			continue
		}
		emit(event+":"+r.BuildName, recipientsFor(event))
	}

	for _, vf := range varFailures {
		emit("variable_failing:"+vf.Variable+"="+vf.Value, recipientsFor("variable_failing"))
	}

	for _, cf := range completelyFailing {
		emit("completely_failing:"+cf.Project, recipientsFor("main_broken"))
	}

	return notifications, emails
}

// sameRecipients reports whether two recipient lists (each already produced
// in sorted order by recipientsFor) carry the same members.
func sameRecipients(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
