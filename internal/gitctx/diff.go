package gitctx

import (
	"context"
	"fmt"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	Include      []string
	Exclude      []string
}

// Diff returns the unified diff from left to right. An empty right diffs
// left against the working tree. An empty result means no differences.
func (r *Repo) Diff(ctx context.Context, left, right string, opts DiffOptions) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	args = append(args, left)
	if right != "" {
		args = append(args, right)
	}
	args = append(args, "--")
	args = append(args, pathspecs(opts)...)

	out, err := r.output(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("git diff %s: %w", Resolution{Left: left, Right: right}.Range(), err)
	}
	return out, nil
}

func pathspecs(opts DiffOptions) []string {
	var specs []string
	for _, p := range opts.Include {
		if p == "" || p == "**/*" {
			continue
		}
		specs = append(specs, ":(glob)"+p)
	}
	for _, p := range opts.Exclude {
		if p == "" {
			continue
		}
		specs = append(specs, ":(exclude,glob)"+p)
	}
	return specs
}
