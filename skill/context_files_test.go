package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverProjectDocs_FindsAgentsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("project rules"), 0o644))

	docs := DiscoverProjectDocs(dir, "")
	assert.Contains(t, docs, "project rules")
	assert.Contains(t, docs, "AGENTS.md")
}

func TestDiscoverProjectDocs_NoFilesReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	docs := DiscoverProjectDocs(dir, "")
	assert.Empty(t, docs)
}

func TestDiscoverProjectDocs_ProviderFilterAddsAlias(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("anthropic-specific"), 0o644))

	docs := DiscoverProjectDocs(dir, "anthropic")
	assert.Contains(t, docs, "anthropic-specific")

	docsNoFilter := DiscoverProjectDocs(dir, "")
	assert.Empty(t, docsNoFilter)
}

func TestCollectPathHierarchy_RootEqualsTarget(t *testing.T) {
	dirs := collectPathHierarchy("/a/b", "/a/b")
	assert.Equal(t, []string{"/a/b"}, dirs)
}

func TestCollectPathHierarchy_NestedTarget(t *testing.T) {
	dirs := collectPathHierarchy("/a", "/a/b/c")
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c"}, dirs)
}

func TestBuildEnvironmentContext_ContainsExpectedFields(t *testing.T) {
	out := BuildEnvironmentContext("/work", "linux", "6.1", "gpt-5.2")
	assert.Contains(t, out, "<environment>")
	assert.Contains(t, out, "/work")
	assert.Contains(t, out, "linux")
	assert.Contains(t, out, "gpt-5.2")
	assert.Contains(t, out, "</environment>")
}
