// Branchreview reviews the changes on a git branch with an LLM.
//
// It diffs the branch against its baseline (from the merge-base by
// default), sends the whole diff as one request when it fits the token
// limit and one request per file otherwise, and writes the raw diff to
// git.diff and the review to review.md.
//
// Usage:
//
//	branchreview review                  # review the current branch against main
//	branchreview review feature/login    # review another branch
//	branchreview segments                # show per-file token estimates, send nothing
//	branchreview tokens FILE...          # count tokens
//	branchreview config init             # write a default config file
package main
