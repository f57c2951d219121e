package gitctx

import (
	"fmt"
	"strings"
)

// CommandError is a git invocation that failed or exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ResolutionError reports a branch or ref that could not be resolved.
type ResolutionError struct {
	Ref string
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolving %s: %s", e.Ref, e.Op)
	}
	return fmt.Sprintf("resolving %s: %s: %v", e.Ref, e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// AmbiguousBranchError means more than one branch was marked current.
type AmbiguousBranchError struct {
	Branches []string
}

func (e *AmbiguousBranchError) Error() string {
	return fmt.Sprintf("more than one current branch: %s", strings.Join(e.Branches, ", "))
}

// NoCurrentBranchError means no branch is checked out (detached HEAD or an
// unborn repository).
type NoCurrentBranchError struct {
	State string
}

func (e *NoCurrentBranchError) Error() string {
	if e.State != "" {
		return "no current branch: " + e.State
	}
	return "no current branch"
}
