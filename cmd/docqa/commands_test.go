package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectDocuments(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "labels")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, name := range []string{"a.txt", "b.png", "labels/c.pdf", "labels/d.docx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	single := filepath.Join(dir, "b.png")

	paths, err := collectDocuments([]string{dir, single})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(sub, "c.pdf"),
		filepath.Join(sub, "d.docx"),
		single,
	}, paths)
}

func TestCollectDocuments_Errors(t *testing.T) {
	_, err := collectDocuments([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	_, err = collectDocuments([]string{t.TempDir()})
	assert.EqualError(t, err, "no supported documents found")
}
