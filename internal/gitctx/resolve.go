package gitctx

import (
	"context"
	"fmt"
)

// Default names used when ResolveOptions leaves them empty.
const (
	DefaultBaseline = "main"
	DefaultRemote   = "origin"
)

// DiffBase selects the left side of the diff.
type DiffBase string

const (
	// DiffBaseMergeBase diffs from the common ancestor of target and
	// baseline, so baseline commits made after divergence are excluded.
	DiffBaseMergeBase DiffBase = "merge-base"
	// DiffBaseTip diffs from the baseline tip.
	DiffBaseTip DiffBase = "tip"
)

// ResolveOptions controls branch resolution.
type ResolveOptions struct {
	// Target is the branch to review; empty means the current branch.
	Target   string
	Baseline string
	Remote   string
	Base     DiffBase
	// WorkingTree diffs against the working tree instead of the target
	// commit. Only valid when the target is checked out.
	WorkingTree bool
}

// Resolution is the outcome of branch resolution.
type Resolution struct {
	Current   string
	Target    string
	Baseline  string
	MergeBase string
	// Left and Right are the diff endpoints. Right is empty when diffing
	// against the working tree.
	Left  string
	Right string
}

// Range renders the diff endpoints for display.
func (res Resolution) Range() string {
	right := res.Right
	if right == "" {
		right = "(working tree)"
	}
	return fmt.Sprintf("%s..%s", shortRef(res.Left), right)
}

func shortRef(ref string) string {
	if len(ref) == 40 {
		return ref[:10]
	}
	return ref
}

// Resolve finds the current branch, materialises the target and baseline
// branches locally, and computes the diff endpoints.
func (r *Repo) Resolve(ctx context.Context, opts ResolveOptions) (Resolution, error) {
	if opts.Baseline == "" {
		opts.Baseline = DefaultBaseline
	}
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Base == "" {
		opts.Base = DiffBaseMergeBase
	}

	branches, err := r.ListBranches(ctx)
	if err != nil {
		return Resolution{}, &ResolutionError{Ref: "HEAD", Op: "listing branches", Err: err}
	}
	current, err := CurrentBranch(branches)
	if err != nil {
		return Resolution{}, err
	}
	r.logger.Debug("current branch", "branch", current)

	target := opts.Target
	if target == "" {
		target = current
	} else if err := r.EnsureLocalBranch(ctx, target, opts.Remote); err != nil {
		return Resolution{}, err
	}
	if opts.WorkingTree && target != current {
		return Resolution{}, &ResolutionError{
			Ref: target,
			Op:  fmt.Sprintf("working tree diff needs %s checked out (current: %s)", target, current),
		}
	}

	if err := r.EnsureLocalBranch(ctx, opts.Baseline, opts.Remote); err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Current:  current,
		Target:   target,
		Baseline: opts.Baseline,
		Right:    target,
	}
	if opts.WorkingTree {
		res.Right = ""
	}

	res.MergeBase, err = r.MergeBase(ctx, target, opts.Baseline)
	if err != nil {
		return Resolution{}, err
	}

	switch opts.Base {
	case DiffBaseMergeBase:
		res.Left = res.MergeBase
	case DiffBaseTip:
		res.Left, err = r.RevParse(ctx, opts.Baseline)
		if err != nil {
			return Resolution{}, err
		}
	default:
		return Resolution{}, fmt.Errorf("unknown diff base %q", opts.Base)
	}

	r.logger.Info("resolved refs",
		"current", res.Current,
		"target", res.Target,
		"baseline", res.Baseline,
		"merge_base", shortRef(res.MergeBase),
	)
	return res, nil
}
