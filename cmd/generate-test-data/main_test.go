package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTitles(t *testing.T) {
	assert.Equal(t, []string{"Dark Magician", "Kuriboh"}, splitTitles(" Dark Magician, ,Kuriboh "))
	assert.Empty(t, splitTitles(" , "))
}

func TestSequence(t *testing.T) {
	frames := sequence([]string{"Dark Magician", "Kuriboh"}, 3, 2)
	require.Len(t, frames, 8)
	assert.Same(t, frames[0], frames[2], "steady frames repeat the same image")
	assert.Same(t, frames[3], frames[4], "gap frames are blank")
	assert.NotSame(t, frames[2], frames[5])

	assert.Len(t, sequence([]string{"Kuriboh"}, 0, 5), 1, "at least one frame per card")
}

func TestGenerateFramesAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	framesDir := filepath.Join(dir, "frames")

	n, err := generateFrames(framesDir, sequence([]string{"Kuriboh"}, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(framesDir, "000.png"))
	assert.FileExists(t, filepath.Join(framesDir, "001.png"))

	path := filepath.Join(dir, "fixtures", "cards.yaml")
	require.NoError(t, generateSnapshot(path, []string{"Dark Magician", "Kuriboh"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	cat, err := catalog.ParseSnapshot(data)
	require.NoError(t, err)
	require.Len(t, cat.Cards(), 2)
	assert.Equal(t, "Dark Magician", cat.Cards()[0].Name)
	assert.Equal(t, int64(1001), cat.Cards()[1].ID)
}
