package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/gpfit/internal/app"
	"github.com/specialistvlad/gpfit/internal/hcl_adapter"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcome of building an App from fit files.
type HarnessResult struct {
	Dir    string // root of the written files
	Output *SafeBuffer
	Logs   *SafeBuffer
	Err    error
	App    *app.App
}

// WriteFiles writes files (relative path to content) under a fresh temporary
// directory and returns its path. Content is unindented first so tests can
// keep HCL snippets aligned with the surrounding code and concatenate
// fixtures indented at different depths.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(TrimTabIndent(Unindent(content))+"\n"), 0o644))
	}
	return dir
}

// NewApp writes files to a temporary directory and builds an App over the
// whole directory with the HCL loader and debug logging. Construction errors
// are returned in the result rather than failing the test.
func NewApp(t *testing.T, files map[string]string, opts ...app.Option) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, files)
	res := &HarnessResult{Dir: dir, Output: &SafeBuffer{}, Logs: &SafeBuffer{}}

	cfg, err := app.NewConfig(app.Config{
		FitPaths:  []string{dir},
		LogLevel:  "debug",
		LogFormat: "text",
		Workers:   4,
	})
	require.NoError(t, err)

	res.App, res.Err = app.NewApp(res.Output, res.Logs, cfg, hcl_adapter.NewLoader(), opts...)

	if os.Getenv("GPFIT_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Logs.String())
	}
	return res
}

// MustApp is NewApp for tests that expect construction to succeed.
func MustApp(t *testing.T, files map[string]string, opts ...app.Option) *HarnessResult {
	t.Helper()

	res := NewApp(t, files, opts...)
	require.NoError(t, res.Err, "app construction failed; logs:\n%s", res.Logs.String())
	return res
}
