package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_InstrumentsAndParameters(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, dir, "fit.hcl", `
instrument "TESS" {
  kind   = "photometry"
  times  = [0, 1]
  values = [1, 0.99]
  errors = [0.01, 0.01]
  linear = [[1, 0], [1, 1]]
}

instrument "HARPS" {
  kind      = "rv"
  data_file = "data/harps.dat"
}

parameter "P_p1" {
  distribution    = "normal"
  hyperparameters = [3.4252, 0.001]
}

parameter "mdilution_TESS" {
  distribution    = "fixed"
  hyperparameters = 1
}
`)

	// --- Act ---
	m, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, m.Instruments, 2)
	tess := m.Instruments[0]
	assert.Equal(t, "TESS", tess.Name)
	assert.Equal(t, "photometry", tess.Kind)
	assert.Equal(t, []float64{1, 0.99}, tess.Values)
	assert.Equal(t, [][]float64{{1, 0}, {1, 1}}, tess.Linear)
	assert.Equal(t, filepath.Join(dir, "data", "harps.dat"), m.Instruments[1].DataFile)

	require.Len(t, m.Parameters, 2)
	assert.Equal(t, []float64{3.4252, 0.001}, m.Parameters[0].Hyperparameters)
	assert.Equal(t, []float64{1}, m.Parameters[1].Hyperparameters)
	assert.Equal(t, "mdilution_TESS", m.Parameters[1].Name)
	assert.Equal(t, "fixed", m.Parameters[1].Distribution)
}

func TestLoad_FilesInLexicalOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.hcl", `parameter "second" {
  distribution    = "uniform"
  hyperparameters = [0, 1]
}`)
	writeFile(t, dir, "a.hcl", `parameter "first" {
  distribution    = "uniform"
  hyperparameters = [0, 1]
}`)
	writeFile(t, dir, "notes.txt", "ignored")

	m, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, m.Parameters, 2)
	assert.Equal(t, "first", m.Parameters[0].Name)
	assert.Equal(t, "second", m.Parameters[1].Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		content  string
		contains string
	}{
		{
			name:     "syntax error",
			content:  `parameter "x" {`,
			contains: "failed to parse HCL file",
		},
		{
			name:     "missing distribution",
			content:  `parameter "x" { hyperparameters = 1 }`,
			contains: "failed to decode HCL file",
		},
		{
			name:     "string hyperparameters",
			content:  "parameter \"x\" {\n  distribution    = \"fixed\"\n  hyperparameters = [\"a\"]\n}\n",
			contains: "element 0 is string",
		},
		{
			name:     "times is not a list",
			content:  "instrument \"A\" {\n  kind  = \"rv\"\n  times = \"now\"\n}\n",
			contains: "failed to decode HCL file",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "fit.hcl", tc.content)

			_, err := NewLoader().Load(context.Background(), path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoad_NoFiles(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl fit files found")

	_, err = NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "error accessing path")
}
