package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nvr-ai/go-ensemble/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func setupInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "a.json"), [][]float32{
		{1, 0, 0, 10, 10, 0.9, 0},
		{1, 50, 50, 60, 60, 0.7, 0},
	})
	writeJSON(t, filepath.Join(dir, "b.json"), [][]float32{
		{1, 1, 1, 11, 11, 0.8, 0},
		{1, 0, 0, 10, 10, 0.4, 3},
	})
	return dir
}

func TestRun_WritesOutputFile(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := setupInput(t)
	out := filepath.Join(t.TempDir(), "merged.json")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-input", dir, "-num-classes", "2", "-output", out}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got [][]float32
	require.NoError(t, json.Unmarshal(data, &got))
	want := [][]float32{
		{1, 0.5, 0.5, 10.5, 10.5, 0.85, 0},
		{1, 50, 50, 60, 60, 0.7, 0},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StdoutAndStats(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := setupInput(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-input", filepath.Join(dir, "b.json"), "-num-classes", "4", "-stats"}, &stdout, &stderr)
	require.NoError(t, err)

	var got [][]float32
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Len(t, got, 2)

	assert.Contains(t, stderr.String(), `"run_id"`)
	assert.Contains(t, stderr.String(), `"output_count": 2`)
	assert.Contains(t, stderr.String(), "ensemble complete")
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := setupInput(t)
	cfg := filepath.Join(t.TempDir(), "ensemble.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("num_classes: 1\nnum_workers: 2\n"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-input", dir, "-config", cfg}, &stdout, &stderr))

	var got [][]float32
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Len(t, got, 2, "class 3 is out of range with num_classes 1")

	stdout.Reset()
	require.NoError(t, run([]string{"-input", dir, "-config", cfg, "-num-classes", "4", "-debug"}, &stdout, &stderr))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Len(t, got, 3)
	assert.Contains(t, stderr.String(), "clustered class")
}

func TestRun_HugeClassCount(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := setupInput(t)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-input", dir, "-num-classes", "1099511627776", "-workers", "2"}, &stdout, &stderr))

	var got [][]float32
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestRun_Errors(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	badRecord := filepath.Join(t.TempDir(), "bad.json")
	writeJSON(t, badRecord, [][]float32{{1, 0, 0, 10, 10, 0.9}})

	tests := []struct {
		name    string
		args    []string
		errPart string
	}{
		{"missing input", nil, "input path is required"},
		{"missing file", []string{"-input", filepath.Join(t.TempDir(), "nope.json")}, "failed to load detections"},
		{"invalid shape", []string{"-input", badRecord}, "invalid detection shape"},
		{"zero classes", []string{"-input", badRecord, "-num-classes", "0"}, "num_classes must be at least 1"},
		{"missing config", []string{"-input", badRecord, "-config", "missing.yaml"}, "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Empty(t, stdout.String())
		})
	}
}
