// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Command briareus is the CLI entry point wiring the Gatherer, Fact
// Builder, BCGen, Builder Adapter, and AnaRep into one run.
package main

import (
	"github.com/briareus-ci/briareus/cmd/briareus/cmd"
)

var version = "dev"

func main() {
	cmd.Execute(version)
}
