package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Repo runs git commands against one repository.
type Repo struct {
	dir      string
	gitDir   string
	workTree string
	logger   *slog.Logger
}

// Open addresses the repository containing dir. An empty dir means the
// process working directory.
func Open(dir string) *Repo {
	return &Repo{dir: dir, logger: slog.Default()}
}

// OpenSplit addresses a repository by its control directory and working
// tree, as `git --git-dir=... --work-tree=...` does. With an empty gitDir
// the repository is discovered from workTree.
func OpenSplit(gitDir, workTree string) *Repo {
	return &Repo{gitDir: gitDir, workTree: workTree, logger: slog.Default()}
}

// WithLogger returns r logging to logger.
func (r *Repo) WithLogger(logger *slog.Logger) *Repo {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Meta describes the repository.
type Meta struct {
	Root string
	Head string
}

// Meta returns the repository root and HEAD commit. Head is empty for a
// repository without commits.
func (r *Repo) Meta(ctx context.Context) (Meta, error) {
	root, err := r.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return Meta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := r.output(ctx, "rev-parse", "HEAD")
	if err != nil {
		head = ""
	}
	return Meta{
		Root: strings.TrimSpace(root),
		Head: strings.TrimSpace(head),
	}, nil
}

func (r *Repo) baseArgs() []string {
	var args []string
	switch {
	case r.gitDir != "":
		args = append(args, "--git-dir="+r.gitDir)
		if r.workTree != "" {
			args = append(args, "--work-tree="+r.workTree)
		}
	case r.workTree != "":
		// No git dir: find the repository from the work tree.
		args = append(args, "-C", r.workTree)
	case r.dir != "":
		args = append(args, "-C", r.dir)
	}
	return args
}

// output runs git and returns stdout. A non-zero exit yields a
// *CommandError holding stderr; stdout is returned either way.
func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append(r.baseArgs(), args...)...)
	// Fixed locale so porcelain-ish output such as "(HEAD detached at ...)"
	// is stable; never prompt for credentials.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("git", "args", args)
	if err := cmd.Run(); err != nil {
		ce := &CommandError{
			Args:     args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ce.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), ce
	}
	return stdout.String(), nil
}
