package gitctx

import (
	"context"
	"strings"
)

// Branch is one line of `git branch --list`.
type Branch struct {
	Name    string
	Current bool
	// Detached marks pseudo-entries such as "(HEAD detached at 1a2b3c4)".
	Detached bool
}

// ListBranches returns the local branches.
func (r *Repo) ListBranches(ctx context.Context) ([]Branch, error) {
	out, err := r.output(ctx, "branch", "--list", "--no-color")
	if err != nil {
		return nil, err
	}
	return parseBranches(out), nil
}

func parseBranches(out string) []Branch {
	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 2 {
			continue
		}
		name := strings.TrimSpace(line[2:])
		if name == "" {
			continue
		}
		branches = append(branches, Branch{
			Name:     name,
			Current:  line[0] == '*',
			Detached: strings.HasPrefix(name, "("),
		})
	}
	return branches
}

// CurrentBranch picks the single branch marked current.
func CurrentBranch(branches []Branch) (string, error) {
	var current []Branch
	for _, b := range branches {
		if b.Current {
			current = append(current, b)
		}
	}
	switch {
	case len(current) > 1:
		names := make([]string, 0, len(current))
		for _, b := range current {
			names = append(names, b.Name)
		}
		return "", &AmbiguousBranchError{Branches: names}
	case len(current) == 0:
		return "", &NoCurrentBranchError{}
	case current[0].Detached:
		return "", &NoCurrentBranchError{State: current[0].Name}
	}
	return current[0].Name, nil
}

// HasLocalBranch reports whether refs/heads/name exists.
func (r *Repo) HasLocalBranch(ctx context.Context, name string) bool {
	return r.refExists(ctx, "refs/heads/"+name)
}

func (r *Repo) refExists(ctx context.Context, ref string) bool {
	_, err := r.output(ctx, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// EnsureLocalBranch makes sure name exists as a local branch, creating it
// to track remote/name when it only exists on the remote. The remote
// branch is fetched when no remote-tracking ref is present yet.
func (r *Repo) EnsureLocalBranch(ctx context.Context, name, remote string) error {
	if r.HasLocalBranch(ctx, name) {
		return nil
	}

	remoteRef := "refs/remotes/" + remote + "/" + name
	if !r.refExists(ctx, remoteRef) {
		r.logger.Info("fetching branch from remote", "branch", name, "remote", remote)
		refspec := "+refs/heads/" + name + ":" + remoteRef
		if _, err := r.output(ctx, "fetch", "--no-tags", remote, refspec); err != nil {
			return &ResolutionError{Ref: name, Op: "branch not found locally or on " + remote, Err: err}
		}
	}

	if _, err := r.output(ctx, "branch", "--track", name, remote+"/"+name); err != nil {
		return &ResolutionError{Ref: name, Op: "creating tracking branch", Err: err}
	}
	r.logger.Info("created tracking branch", "branch", name, "remote", remote)
	return nil
}

// MergeBase returns the best common ancestor of a and b.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := r.output(ctx, "merge-base", a, b)
	if err != nil {
		return "", &ResolutionError{Ref: a + "..." + b, Op: "no common ancestor", Err: err}
	}
	return strings.TrimSpace(out), nil
}

// RevParse resolves ref to a commit SHA.
func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", &ResolutionError{Ref: ref, Op: "not a commit", Err: err}
	}
	return strings.TrimSpace(out), nil
}
