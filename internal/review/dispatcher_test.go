package review

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/redact"
)

func TestDispatch_WholeDiffFits(t *testing.T) {
	fake := &fakeCompleter{}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10_000, Retries: 2}, nil)

	seg := diffparse.Segment(twoFileDiff)
	report := d.Dispatch(context.Background(), twoFileDiff, seg.Changes)

	assert.Equal(t, ModeWhole, report.Mode)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Results[0].Path)
	assert.Equal(t, "ok", report.Results[0].Text)
	assert.Equal(t, 1, fake.callCount())
	assert.Equal(t, twoFileDiff, lastContent(fake.calls[0]))
}

func TestDispatch_PerFileOrder(t *testing.T) {
	fake := &fakeCompleter{fn: func(req providers.CompletionRequest) (providers.CompletionResponse, error) {
		payload := lastContent(req)
		// Finish the first file last to exercise reordering.
		if strings.HasPrefix(payload, "File: a.py") {
			time.Sleep(20 * time.Millisecond)
		}
		return providers.CompletionResponse{Content: "review of " + strings.SplitN(payload, "\n", 2)[0]}, nil
	}}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10, Concurrency: 4}, nil)

	seg := diffparse.Segment(twoFileDiff)
	report := d.Dispatch(context.Background(), twoFileDiff, seg.Changes)

	assert.Equal(t, ModePerFile, report.Mode)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "a.py", report.Results[0].Path)
	assert.Equal(t, "b.py", report.Results[1].Path)
	assert.Equal(t, "review of File: a.py", report.Results[0].Text)
	assert.Equal(t, "review of File: b.py", report.Results[1].Text)
	assert.Equal(t, 2, fake.callCount())
	assert.Zero(t, report.Degraded())
}

func TestDispatch_RequestCount(t *testing.T) {
	var b strings.Builder
	for i := range 7 {
		fmt.Fprintf(&b, "diff --git a/f%d.go b/f%d.go\n@@ -1 +1 @@\n-old line %d\n+new line %d\n", i, i, i, i)
	}
	diff := b.String()
	changes := diffparse.Segment(diff).Changes
	require.Len(t, changes, 7)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"fits", 100_000, 1},
		{"exact fit", heuristic(t).Estimate(diff), 1},
		{"one over", heuristic(t).Estimate(diff) - 1, 7},
		{"tiny", 1, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{}
			d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: tt.limit, Concurrency: 3}, nil)
			report := d.Dispatch(context.Background(), diff, changes)
			assert.Equal(t, tt.want, fake.callCount())
			assert.Len(t, report.Results, tt.want)
		})
	}
}

func TestDispatch_RetriesExactly(t *testing.T) {
	for _, retries := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			fake := &fakeCompleter{fn: func(providers.CompletionRequest) (providers.CompletionResponse, error) {
				return providers.CompletionResponse{}, errBoom
			}}
			d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10_000, Retries: retries}, nil)

			report := d.Dispatch(context.Background(), twoFileDiff, nil)

			require.Len(t, report.Results, 1)
			res := report.Results[0]
			assert.Equal(t, retries+1, fake.callCount())
			assert.Equal(t, retries+1, res.Attempts)
			assert.True(t, res.Degraded())
			assert.ErrorIs(t, res.Err, errBoom)
			assert.Equal(t, "review unavailable: boom", res.Text)
		})
	}
}

func TestDispatch_RetryThenSucceed(t *testing.T) {
	var n atomic.Int32
	fake := &fakeCompleter{fn: func(providers.CompletionRequest) (providers.CompletionResponse, error) {
		if n.Add(1) < 3 {
			return providers.CompletionResponse{}, errBoom
		}
		return providers.CompletionResponse{Content: "fine", TokensUsed: 12}, nil
	}}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10_000, Retries: 2, RetryBackoff: time.Millisecond}, nil)

	report := d.Dispatch(context.Background(), twoFileDiff, nil)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "fine", report.Results[0].Text)
	assert.Equal(t, 3, report.Results[0].Attempts)
	assert.False(t, report.Results[0].Degraded())
	assert.Equal(t, 12, report.TokensUsed())
}

func TestDispatch_OneFileFailsOthersKept(t *testing.T) {
	fake := &fakeCompleter{fn: func(req providers.CompletionRequest) (providers.CompletionResponse, error) {
		if strings.HasPrefix(lastContent(req), "File: b.py") {
			return providers.CompletionResponse{}, errBoom
		}
		return providers.CompletionResponse{Content: "a is fine"}, nil
	}}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10, Retries: 2}, nil)

	report := d.Dispatch(context.Background(), twoFileDiff, diffparse.Segment(twoFileDiff).Changes)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "a is fine", report.Results[0].Text)
	assert.Equal(t, "review unavailable for b.py: boom", report.Results[1].Text)
	assert.Equal(t, "b.py", report.Results[1].Path)
	assert.Equal(t, 1, report.Degraded())
	assert.Equal(t, 1, fake.callsFor("File: a.py"))
	assert.Equal(t, 3, fake.callsFor("File: b.py"))
}

func TestDispatch_OversizedFileSentWhole(t *testing.T) {
	big := "diff --git a/big.go b/big.go\n@@ -1 +1 @@\n+" + strings.Repeat("x", 400) + "\n"
	fake := &fakeCompleter{}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10}, nil)

	report := d.Dispatch(context.Background(), big, diffparse.Segment(big).Changes)

	require.Len(t, report.Results, 1)
	assert.Equal(t, ModePerFile, report.Mode)
	assert.Equal(t, "big.go", report.Results[0].Path)
	assert.Contains(t, lastContent(fake.calls[0]), strings.Repeat("x", 400))
}

func TestDispatch_EmptyDiff(t *testing.T) {
	fake := &fakeCompleter{}
	d := NewDispatcher(fake, heuristic(t), Options{}, nil)

	report := d.Dispatch(context.Background(), "", nil)

	assert.Equal(t, ModeNone, report.Mode)
	assert.Empty(t, report.Results)
	assert.Zero(t, fake.callCount())
}

func TestSend_CancelledBeforeDispatch(t *testing.T) {
	fake := &fakeCompleter{}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := d.Dispatch(ctx, twoFileDiff, diffparse.Segment(twoFileDiff).Changes)

	require.Len(t, report.Results, 2)
	assert.Zero(t, fake.callCount())
	for _, res := range report.Results {
		assert.True(t, res.Skipped)
		assert.True(t, res.Degraded())
		assert.Contains(t, res.Text, "review skipped for "+res.Path)
	}
}

func TestSend_InFlightCallSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var sawCancel atomic.Bool

	completer := &ctxCompleter{fn: func(callCtx context.Context) (providers.CompletionResponse, error) {
		close(started)
		cancel()
		time.Sleep(10 * time.Millisecond)
		sawCancel.Store(callCtx.Err() != nil)
		return providers.CompletionResponse{Content: "done"}, nil
	}}
	d := NewDispatcher(completer, heuristic(t), Options{TokenLimit: 10, Concurrency: 1}, nil)

	results := d.Send(ctx, []Request{
		{Index: 0, Path: "a.py", Payload: "a"},
		{Index: 1, Path: "b.py", Payload: "b"},
	})
	<-started

	require.Len(t, results, 2)
	assert.False(t, sawCancel.Load(), "in-flight call should not see run cancellation")
	assert.Equal(t, "done", results[0].Text)
	assert.True(t, results[1].Skipped)
}

type ctxCompleter struct {
	fn func(ctx context.Context) (providers.CompletionResponse, error)
}

func (c *ctxCompleter) Name() string { return "ctx" }

func (c *ctxCompleter) Complete(ctx context.Context, _ providers.CompletionRequest) (providers.CompletionResponse, error) {
	return c.fn(ctx)
}

func TestDispatch_Redaction(t *testing.T) {
	diff := "diff --git a/.env b/.env\n@@ -0,0 +1 @@\n+DB_PASSWORD=hunter2\n" +
		"diff --git a/main.go b/main.go\n@@ -1 +1 @@\n+key := \"live-credential\"\n"
	changes := diffparse.Segment(diff).Changes
	r := redact.New(redact.Options{Patterns: true, Paths: redact.DefaultPaths, Literals: []string{"live-credential"}})

	t.Run("whole", func(t *testing.T) {
		fake := &fakeCompleter{}
		d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10_000, Redactor: r}, nil)
		d.Dispatch(context.Background(), diff, changes)

		sent := lastContent(fake.calls[0])
		assert.NotContains(t, sent, "hunter2")
		assert.NotContains(t, sent, "live-credential")
		assert.Contains(t, sent, "diff --git a/main.go b/main.go")
	})

	t.Run("per-file", func(t *testing.T) {
		fake := &fakeCompleter{}
		d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 1, Concurrency: 1, Redactor: r}, nil)
		d.Dispatch(context.Background(), diff, changes)

		require.Equal(t, 2, fake.callCount())
		for _, c := range fake.calls {
			assert.NotContains(t, lastContent(c), "hunter2")
			assert.NotContains(t, lastContent(c), "live-credential")
		}
	})
}

func TestDispatch_RateLimited(t *testing.T) {
	fake := &fakeCompleter{}
	d := NewDispatcher(fake, heuristic(t), Options{TokenLimit: 10, RequestsPerMinute: 6000}, nil)

	report := d.Dispatch(context.Background(), twoFileDiff, diffparse.Segment(twoFileDiff).Changes)

	assert.Len(t, report.Results, 2)
	assert.Equal(t, 2, fake.callCount())
}
