// Package testutils holds fixtures shared by the tests of packages that
// generate and check files on disk.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/config"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
)

// CreateTempProject creates a temporary project structure for testing
func CreateTempProject(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	dirs := []string{
		"recipes",
		"templates",
		"out",
	}

	for _, dir := range dirs {
		err := os.MkdirAll(filepath.Join(tempDir, dir), 0o755)
		require.NoError(t, err)
	}

	return tempDir
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// CreateTestConfig creates a configuration generating into projectDir/out.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Generation.OutputDir = filepath.Join(projectDir, "out")
	cfg.Watch.Paths = []string{cfg.Generation.OutputDir}
	return cfg
}

// EditFreeRegion replaces the content of the free-edit segment segmentID of
// a generated file the way a developer would, keeping the trace metadata in
// step with the file.
func EditFreeRegion(t *testing.T, st *store.Store, fileName, segmentID, content string) {
	t.Helper()
	f, found, err := st.LoadModel(fileName)
	require.NoError(t, err)
	require.True(t, found, "no trace metadata for %s", fileName)

	s, ok := f.RecursiveSegment(segmentID)
	require.True(t, ok, "segment %s not found in %s", segmentID, fileName)
	leaf, ok := s.(*segment.ContentSegment)
	require.True(t, ok, "segment %s is a %s", segmentID, s.Kind())
	require.False(t, leaf.Protected(), "segment %s is protected", segmentID)

	leaf.SetContent(content)
	require.NoError(t, st.Save(context.Background(), f))
}
