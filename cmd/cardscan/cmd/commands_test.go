package cmd

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCommand(t *testing.T) {
	dir := isolate(t)
	snapshot := writeSnapshot(t, dir)

	tests := []struct {
		name       string
		args       []string
		wantName   string
		wantSource resolver.Source
		accepted   bool
	}{
		{
			name:       "noisy text",
			args:       []string{"resolve", "--snapshot", snapshot, "DARK", "magician!"},
			wantName:   "Dark Magician",
			wantSource: resolver.SourceQuery,
			accepted:   true,
		},
		{
			name:       "manual override",
			args:       []string{"resolve", "--snapshot", snapshot, "--manual", "Kuriboh", "whatever"},
			wantName:   "Kuriboh",
			wantSource: resolver.SourceManual,
			accepted:   true,
		},
		{
			name: "unknown card",
			args: []string{"resolve", "--snapshot", snapshot, "Blue-Eyes White Dragon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(t, tt.args...)
			require.NoError(t, err)

			var res resolver.Result
			require.NoError(t, json.Unmarshal([]byte(output), &res), output)
			assert.Equal(t, tt.accepted, res.Accepted)
			assert.Equal(t, tt.wantName, res.Name)
			assert.Equal(t, tt.wantSource, res.Source)
		})
	}
}

func TestResolveCommand_NothingToResolve(t *testing.T) {
	dir := isolate(t)
	_, err := executeCommand(t, "resolve", "--snapshot", writeSnapshot(t, dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to resolve")
}

func TestResolveCommand_InvalidThreshold(t *testing.T) {
	dir := isolate(t)
	_, err := executeCommand(t, "resolve", "--snapshot", writeSnapshot(t, dir), "--threshold", "1.5", "Kuriboh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

func TestPrintingsCommand(t *testing.T) {
	dir := isolate(t)
	snapshot := writeSnapshot(t, dir)

	output, err := executeCommand(t, "printings", "--snapshot", snapshot, "Dark", "Magician")
	require.NoError(t, err)

	var summary catalog.Summary
	require.NoError(t, json.Unmarshal([]byte(output), &summary), output)
	assert.Equal(t, int64(46986414), summary.CardID)
	require.Len(t, summary.Sets, 2)
	assert.Equal(t, "LOB-005", summary.Sets[0].Code)
	assert.Equal(t, "SDY-006", summary.Sets[1].Code)
	assert.Equal(t, []float64{4.5}, summary.Prices["LOB-005"])

	_, err = executeCommand(t, "printings", "--snapshot", snapshot, "Kuriboh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no printings found")
}

func TestDetectCommand(t *testing.T) {
	dir := isolate(t)
	img := writeCardFrame(t, dir, "frame.png")
	overlay := filepath.Join(dir, "overlay.png")
	crop := filepath.Join(dir, "band.png")

	output, err := executeCommand(t, "detect", img, "--overlay", overlay, "--crop", crop)
	require.NoError(t, err)

	var res DetectResult
	require.NoError(t, json.Unmarshal([]byte(output), &res), output)
	assert.Equal(t, img, res.File)
	assert.Equal(t, 420, res.Width)
	assert.Equal(t, 600, res.Height)
	assert.False(t, res.Region.TooEmpty)
	assert.False(t, res.Region.Rect.Empty())
	assert.False(t, res.Window.Empty())

	assert.FileExists(t, overlay)
	assert.FileExists(t, crop)
}

func TestDetectCommand_Errors(t *testing.T) {
	dir := isolate(t)
	img := writeCardFrame(t, dir, "frame.png")

	_, err := executeCommand(t, "detect", filepath.Join(dir, "missing.png"))
	require.Error(t, err)

	_, err = executeCommand(t, "detect", img, "--overlay", filepath.Join(dir, "o.png"), "--region-color", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region-color")

	_, err = executeCommand(t, "detect")
	require.Error(t, err)
}

func TestReadCommand(t *testing.T) {
	dir := isolate(t)
	useFakeBackend(t, "Dark Magician")
	img := writeCardFrame(t, dir, "frame.png")

	output, err := executeCommand(t, "read", "--snapshot", writeSnapshot(t, dir), img)
	require.NoError(t, err)

	var res ReadResult
	require.NoError(t, json.Unmarshal([]byte(output), &res), output)
	assert.Equal(t, "Dark Magician", res.Text)
	assert.NotEmpty(t, res.Variant)
	assert.True(t, res.Resolution.Accepted)
	assert.Equal(t, "Dark Magician", res.Resolution.Name)
	assert.Equal(t, 100, res.Accuracy)
}

func TestReadCommand_NoText(t *testing.T) {
	dir := isolate(t)
	useFakeBackend(t, "")
	img := writeCardFrame(t, dir, "frame.png")

	output, err := executeCommand(t, "read", "--snapshot", writeSnapshot(t, dir), img)
	require.NoError(t, err)

	var res ReadResult
	require.NoError(t, json.Unmarshal([]byte(output), &res), output)
	assert.Empty(t, res.Text)
	assert.False(t, res.Resolution.Accepted)
	assert.Equal(t, resolver.ReasonEmpty, res.Resolution.Reason)
}

func TestScanCommand(t *testing.T) {
	dir := isolate(t)
	useFakeBackend(t, "Dark Magician")
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o755))
	writeCardFrame(t, frames, "000.png")
	writeCardFrame(t, frames, "001.png")

	output, err := executeCommand(t, "scan", frames,
		"--snapshot", writeSnapshot(t, dir),
		"--interval", "20ms",
		"--max-commits", "1",
		"--max-ticks", "500",
	)
	require.NoError(t, err)

	var commits []scanner.Commit
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		var c scanner.Commit
		require.NoError(t, json.Unmarshal(sc.Bytes(), &c), sc.Text())
		commits = append(commits, c)
	}
	require.Len(t, commits, 1, output)
	assert.Equal(t, "Dark Magician", commits[0].CanonicalName)
	assert.Equal(t, "Dark Magician", commits[0].RecognizedText)
	assert.Equal(t, 100, commits[0].Accuracy)
}

func TestScanCommand_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := executeCommand(t, "scan", filepath.Join(dir, "missing"))
	require.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = executeCommand(t, "scan", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported images")

	_, err = executeCommand(t, "scan", empty, "--interval", "-1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "cardscan.yaml")

	output, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resolver:")
	assert.Contains(t, string(data), "threshold: 0.7")

	_, err = executeCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, "config", "init", path, "--force")
	require.NoError(t, err)

	output, err = executeCommand(t, "config", "show", "--format", "json")
	require.NoError(t, err)
	var settings map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &settings), output)
	assert.Contains(t, settings, "resolver")
	assert.Contains(t, settings, "scanner")

	output, err = executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "catalog:")

	_, err = executeCommand(t, "config", "show", "--format", "toml")
	require.Error(t, err)

	output, err = executeCommand(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, "Environment prefix: CARDSCAN")
}
