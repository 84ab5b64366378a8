package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectWalk(t *testing.T, root string) []WalkResult {
	t.Helper()

	w := NewWalker(discardLogger())
	var results []WalkResult
	for wr := range w.Walk(context.Background(), root) {
		results = append(results, wr)
	}
	return results
}

func TestWalk_FindsNestedFiles(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "scifi", "Frank Herbert", "Dune", "Dune.epub")
	writeBook(t, root, "top.epub")

	results := collectWalk(t, root)
	require.Len(t, results, 2)

	paths := make(map[string]WalkResult)
	for _, r := range results {
		paths[r.RelPath] = r
	}
	nested, ok := paths[filepath.Join("scifi", "Frank Herbert", "Dune", "Dune.epub")]
	require.True(t, ok)
	assert.NotZero(t, nested.Size)
	assert.NotZero(t, nested.ModTime)
	assert.Equal(t, filepath.Join(root, "scifi", "Frank Herbert", "Dune", "Dune.epub"), nested.Path)
}

func TestWalk_SkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, ".stversions", "old.epub")
	writeBook(t, root, ".hidden.epub")
	writeBook(t, root, "visible.epub")

	results := collectWalk(t, root)
	require.Len(t, results, 1)
	assert.Equal(t, "visible.epub", results[0].RelPath)
}

func TestWalk_CancelStopsEarly(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeBook(t, root, "dir", "book"+string(rune('a'+i))+".epub")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWalker(discardLogger())
	count := 0
	for range w.Walk(ctx, root) {
		count++
	}
	// The buffered channel may hold a few results, but the walk aborts.
	assert.Less(t, count, 10)
}
