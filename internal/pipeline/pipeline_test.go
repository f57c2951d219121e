package pipeline

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/branchreview/internal/artifact"
	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/review"
	"github.com/dshills/branchreview/internal/tokens"
)

type fakeCompleter struct {
	mu       sync.Mutex
	payloads []string
	fn       func(payload string) (string, error)
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	payload := req.Messages[len(req.Messages)-1].Content
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	text, err := f.fn(payload)
	if err != nil {
		return providers.CompletionResponse{}, err
	}
	return providers.CompletionResponse{Content: text}, nil
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

func runGitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err, "git %s", strings.Join(args, " "))
	return string(out)
}

func commit(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	git(t, dir, "add", name)
	git(t, dir, "commit", "-q", "-m", "change "+name)
}

// testRepo creates a repository on main with one commit.
func testRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found on PATH")
	}
	for k, v := range map[string]string{
		"GIT_AUTHOR_NAME":     "Test",
		"GIT_AUTHOR_EMAIL":    "test@example.com",
		"GIT_COMMITTER_NAME":  "Test",
		"GIT_COMMITTER_EMAIL": "test@example.com",
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_CONFIG_GLOBAL":   os.DevNull,
	} {
		t.Setenv(k, v)
	}
	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	commit(t, dir, "README.md", "# repo\n")
	return dir
}

func newPipeline(t *testing.T, repo string, fake *fakeCompleter, limit int) (*Pipeline, *artifact.Store) {
	t.Helper()
	budget, err := tokens.New(tokens.Heuristic)
	require.NoError(t, err)
	store, err := artifact.New(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	d := review.NewDispatcher(fake, budget, review.Options{TokenLimit: limit, Retries: 2, Concurrency: 2}, nil)
	return New(Deps{
		Repo:       gitctx.Open(repo),
		Budgeter:   budget,
		Dispatcher: d,
		Store:      store,
	}), store
}

func readArtifact(t *testing.T, store *artifact.Store, name string) string {
	t.Helper()
	data, err := os.ReadFile(store.Path(name))
	require.NoError(t, err)
	return string(data)
}

func artifactExists(store *artifact.Store, name string) bool {
	_, err := os.Stat(store.Path(name))
	return err == nil
}

func TestRun_NoChanges(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeCompleter{fn: func(string) (string, error) { return "unused", nil }}
	p, store := newPipeline(t, repo, fake, 1000)

	out, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, out.NoChanges)
	assert.Equal(t, review.ModeNone, out.Mode)
	assert.Empty(t, fake.payloads, "no review request expected")
	assert.NotEmpty(t, out.RunID)

	diff := readArtifact(t, store, artifact.DiffFile)
	assert.Empty(t, diff)
	md := readArtifact(t, store, artifact.ReviewFile)
	assert.Contains(t, md, "No changes")
}

func TestRun_WholeDiff(t *testing.T) {
	repo := testRepo(t)
	git(t, repo, "checkout", "-q", "-b", "feature")
	commit(t, repo, "a.py", "print('a')\n")

	fake := &fakeCompleter{fn: func(string) (string, error) { return "Looks good.\n", nil }}
	p, store := newPipeline(t, repo, fake, 100_000)

	out, err := p.Run(context.Background(), Options{HTML: true})
	require.NoError(t, err)

	assert.Equal(t, review.ModeWhole, out.Mode)
	require.Len(t, out.Report.Results, 1)
	assert.Empty(t, out.Report.Results[0].Path)
	assert.Len(t, fake.payloads, 1)
	assert.Positive(t, out.DiffTokens)

	md := readArtifact(t, store, artifact.ReviewFile)
	assert.Equal(t, "Looks good.\n", md)

	diff := readArtifact(t, store, artifact.DiffFile)
	assert.Contains(t, diff, "diff --git a/a.py b/a.py")
	assert.Equal(t, diff, fake.payloads[0])

	assert.True(t, artifactExists(store, artifact.HTMLFile))
	assert.Equal(t, store.Path(artifact.HTMLFile), out.HTMLPath)
}

func TestRun_PerFileWithFailure(t *testing.T) {
	repo := testRepo(t)
	git(t, repo, "checkout", "-q", "-b", "feature")
	commit(t, repo, "a.py", strings.Repeat("print('a')\n", 20))
	commit(t, repo, "b.py", strings.Repeat("print('b')\n", 20))

	fake := &fakeCompleter{fn: func(payload string) (string, error) {
		if strings.HasPrefix(payload, "File: b.py") {
			return "", errors.New("service unavailable")
		}
		return "a.py looks fine", nil
	}}
	p, store := newPipeline(t, repo, fake, 50)

	out, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, review.ModePerFile, out.Mode)
	require.Len(t, out.Report.Results, 2)
	assert.Equal(t, "a.py", out.Report.Results[0].Path)
	assert.Equal(t, "b.py", out.Report.Results[1].Path)
	assert.Equal(t, 1, out.Degraded)
	assert.Len(t, fake.payloads, 4, "one call for a.py, three for b.py")

	md := readArtifact(t, store, artifact.ReviewFile)
	ia := strings.Index(md, "## a.py")
	ib := strings.Index(md, "## b.py")
	require.True(t, ia >= 0 && ib > ia, "sections out of order:\n%s", md)
	assert.Contains(t, md, "a.py looks fine")
	assert.Contains(t, md, "review unavailable for b.py: service unavailable")
}

func TestRun_MissingTarget(t *testing.T) {
	upstream := testRepo(t)
	work := t.TempDir()
	git(t, work, "clone", "-q", upstream, ".")

	fake := &fakeCompleter{fn: func(string) (string, error) { return "unused", nil }}
	p, store := newPipeline(t, work, fake, 1000)

	out, err := p.Run(context.Background(), Options{Resolve: gitctx.ResolveOptions{Target: "does-not-exist"}})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageResolve, stageErr.Stage)
	var resErr *gitctx.ResolutionError
	assert.ErrorAs(t, err, &resErr)

	assert.Empty(t, out.DiffPath)
	assert.False(t, artifactExists(store, artifact.DiffFile), "no diff artifact on resolution failure")
	assert.Empty(t, fake.payloads)
}

func TestRun_ClearsStaleArtifacts(t *testing.T) {
	upstream := testRepo(t)
	work := t.TempDir()
	git(t, work, "clone", "-q", upstream, ".")

	fake := &fakeCompleter{fn: func(string) (string, error) { return "unused", nil }}
	p, store := newPipeline(t, work, fake, 1000)
	for _, name := range []string{artifact.DiffFile, artifact.ReviewFile, artifact.HTMLFile} {
		_, err := store.Write(name, "OLD "+name)
		require.NoError(t, err)
	}

	_, err := p.Run(context.Background(), Options{Resolve: gitctx.ResolveOptions{Target: "does-not-exist"}})
	require.Error(t, err)

	assert.False(t, artifactExists(store, artifact.DiffFile), "stale git.diff survived a failed run")
	assert.False(t, artifactExists(store, artifact.ReviewFile), "stale review.md survived a failed run")
	assert.False(t, artifactExists(store, artifact.HTMLFile), "stale review.html survived a failed run")
}

func TestRun_WithoutHTMLDropsOldPage(t *testing.T) {
	repo := testRepo(t)
	git(t, repo, "checkout", "-q", "-b", "feature")
	commit(t, repo, "a.py", "print('a')\n")

	fake := &fakeCompleter{fn: func(string) (string, error) { return "Fine.", nil }}
	p, store := newPipeline(t, repo, fake, 100_000)

	_, err := p.Run(context.Background(), Options{HTML: true})
	require.NoError(t, err)
	require.True(t, artifactExists(store, artifact.HTMLFile))

	out, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, out.HTMLPath)
	assert.False(t, artifactExists(store, artifact.HTMLFile), "review.html from the earlier run survived")
	assert.Equal(t, "Fine.", readArtifact(t, store, artifact.ReviewFile))
}

func TestInspect(t *testing.T) {
	repo := testRepo(t)
	git(t, repo, "checkout", "-q", "-b", "feature")
	commit(t, repo, "a.py", "print('a')\n")
	commit(t, repo, "b.py", strings.Repeat("print('b')\n", 40))

	budget, err := tokens.New(tokens.Heuristic)
	require.NoError(t, err)
	p := New(Deps{Repo: gitctx.Open(repo), Budgeter: budget, TokenLimit: 30})

	in, err := p.Inspect(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, in.Files, 2)
	assert.Equal(t, "a.py", in.Files[0].Path)
	assert.True(t, in.Files[0].Fits)
	assert.Equal(t, "b.py", in.Files[1].Path)
	assert.False(t, in.Files[1].Fits)
	assert.False(t, in.WholeFits)
	assert.Equal(t, 30, in.TokenLimit)
}

func TestInspect_MeasuresSentPayload(t *testing.T) {
	repo := testRepo(t)
	git(t, repo, "checkout", "-q", "-b", "feature")
	commit(t, repo, "a.py", "print('a')\n")

	budget, err := tokens.New(tokens.Heuristic)
	require.NoError(t, err)
	p := New(Deps{Repo: gitctx.Open(repo), Budgeter: budget, TokenLimit: 1000})

	in, err := p.Inspect(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, in.Files, 1)

	diff := runGitOutput(t, repo, "diff", "main", "feature")
	fc := diffparse.Segment(diff).Changes[0]
	want := budget.Estimate(review.PerFilePayload(nil, fc))
	assert.Equal(t, want, in.Files[0].Tokens)
	assert.Greater(t, in.Files[0].Tokens, budget.Estimate(fc.Body), "payload framing must be counted")
}

func TestStageError(t *testing.T) {
	inner := errors.New("exit 128")
	err := stageErr(StageExtract, inner)
	assert.Equal(t, "extract: exit 128", err.Error())
	assert.ErrorIs(t, err, inner)
}
