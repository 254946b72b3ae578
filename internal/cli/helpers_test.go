package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	scripts        *mockScriptFactory
	synths         *mockSynthesizerFactory
	imgs           *mockImageFactory
	probers        *mockProberFactory
	renderers      *mockRendererFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		scripts:        &mockScriptFactory{},
		synths:         &mockSynthesizerFactory{},
		imgs:           &mockImageFactory{},
		probers:        &mockProberFactory{},
		renderers:      &mockRendererFactory{},
	}
}

// ---------------------------------------------------------------------------
// newTestEnv - fully mocked Env
// ---------------------------------------------------------------------------

// mapGetenv returns a Getenv backed by a map, with OPENAI_API_KEY set
// unless the map overrides it.
func mapGetenv(vars map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		if key == "OPENAI_API_KEY" {
			return "sk-test"
		}
		return ""
	}
}

func newTestEnv(mocks *testMocks, stderr io.Writer, vars map[string]string) *Env {
	if stderr == nil {
		stderr = io.Discard
	}
	return NewEnv(
		WithStdout(io.Discard),
		WithStderr(stderr),
		WithGetenv(mapGetenv(vars)),
		WithNewRunID(func() string { return "run01" }),
		WithFFmpegResolver(mocks.ffmpegResolver),
		WithScriptFactory(mocks.scripts),
		WithSynthesizerFactory(mocks.synths),
		WithImageFactory(mocks.imgs),
		WithProberFactory(mocks.probers),
		WithRendererFactory(mocks.renderers),
	)
}

// executeCmd runs a cobra command with a background context.
func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}
