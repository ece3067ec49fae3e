// Package main hosts the docmatch CLI entrypoint and command graph.
//
// The Cobra-based command tree runs configured pipelines once or on change,
// inspects what the attribute extractor sees in each document, explains the
// score of a single pair, browses the run ledger and scaffolds configuration.
// It centralizes configuration resolution and structured logging setup so
// subcommands can focus on presentation instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
