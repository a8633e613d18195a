// Package main hosts the vidinsight CLI entrypoint and command graph.
//
// The Cobra-based command tree turns a video URL into a rendered
// communication report ("analyze"), verifies the local toolchain ("check"),
// and scaffolds configuration ("config"). It centralizes configuration
// resolution, logger setup, and the mapping from pipeline error kinds to
// user hints and exit codes so subcommands stay declarative.
//
// Keep this package lean: new behaviour belongs in the internal packages
// first, then surfaces here as a command or flag.
package main
