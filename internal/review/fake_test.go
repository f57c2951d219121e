package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/tokens"
)

// fakeCompleter answers from a function and records every call.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []providers.CompletionRequest
	fn    func(req providers.CompletionRequest) (providers.CompletionResponse, error)
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn == nil {
		return providers.CompletionResponse{Content: "ok"}, nil
	}
	return f.fn(req)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// callsFor counts calls whose last message mentions marker.
func (f *fakeCompleter) callsFor(marker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(lastContent(c), marker) {
			n++
		}
	}
	return n
}

func lastContent(req providers.CompletionRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

var errBoom = errors.New("boom")

func heuristic(t *testing.T) *tokens.Budgeter {
	t.Helper()
	b, err := tokens.New(tokens.Heuristic)
	require.NoError(t, err)
	return b
}

const twoFileDiff = `diff --git a/a.py b/a.py
index 1111111..2222222 100644
--- a/a.py
+++ b/a.py
@@ -1 +1 @@
-print("a")
+print("A")
diff --git a/b.py b/b.py
index 3333333..4444444 100644
--- a/b.py
+++ b/b.py
@@ -1 +1 @@
-print("b")
+print("B")
`
