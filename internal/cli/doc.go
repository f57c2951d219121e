// Package cli wires together the Cobra command tree for the branchreview
// binary.
//
// It defines the root command and its subcommands (review, segments, tokens,
// config, version), binds flags to config keys, builds the review pipeline
// and maps failures to exit codes: 0 success, 1 unavailable reviews with
// --strict, 2 usage, 3 configuration, 4 git or artifact failures.
package cli
