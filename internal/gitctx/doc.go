// Package gitctx resolves branches and extracts diffs from a git repository.
//
// It shells out to the git binary: `git branch --list` to find the checked
// out branch, `git merge-base` to find the common ancestor with the
// baseline, `git fetch` / `git branch --track` to materialise a target
// branch that only exists on the remote, and `git diff` to produce the raw
// unified diff. A [Repo] addresses the repository either by directory
// (`git -C`) or by explicit `--git-dir` / `--work-tree` paths.
//
// Failures carry the captured stderr in a [CommandError]. Branch problems
// are reported as [ResolutionError], [AmbiguousBranchError] or
// [NoCurrentBranchError].
package gitctx
