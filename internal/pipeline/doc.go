// Package pipeline sequences one review run: resolve the branches, extract
// the diff, write it, segment and measure it, dispatch the reviews and
// write the review artifact.
//
// Each fatal failure is returned as a [*StageError] naming the step. A
// failed review request is not fatal; it shows up as a placeholder in the
// report and is counted in [Outcome.Degraded].
package pipeline
