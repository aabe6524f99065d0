// Package main hosts the tvrecs CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the run logger and service clients, and hands the work to the recommend
// package. Subcommands cover the recommendation run itself, cache inspection,
// Trakt history maintenance, notification checks and configuration
// scaffolding.
package main
