package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, name, frontMatterYAML, body string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\n" + frontMatterYAML + "\n---\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
}

func TestLoadAll_ParsesValidSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "greet", "name: greet\ndescription: says hello\n", "Say hello to $ARGUMENTS.")

	loader := NewLoader(Root{Dir: root, Source: SourceWorkspace})
	result := loader.LoadAll()

	require.Empty(t, result.Errors)
	require.Contains(t, result.Skills, "greet")
	sk := result.Skills["greet"]
	assert.Equal(t, "says hello", sk.Description)
	assert.Equal(t, "Say hello to $ARGUMENTS.", sk.Content)
	assert.Equal(t, SourceWorkspace, sk.Source)
}

func TestLoadAll_MissingFrontMatterIsLoaderError(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("no front matter here"), 0o644))

	loader := NewLoader(Root{Dir: root, Source: SourceWorkspace})
	result := loader.LoadAll()

	require.Len(t, result.Errors, 1)
	assert.Empty(t, result.Skills)
}

func TestLoadAll_InvalidNameRejected(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "Bad_Name", "name: Bad_Name\ndescription: x\n", "body")

	loader := NewLoader(Root{Dir: root, Source: SourceWorkspace})
	result := loader.LoadAll()

	require.Len(t, result.Errors, 1)
}

func TestLoadAll_OversizeDescriptionRejected(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, maxDescriptionLen+1)
	for i := range big {
		big[i] = 'x'
	}
	writeSkill(t, root, "toolong", "name: toolong\ndescription: "+string(big)+"\n", "body")

	loader := NewLoader(Root{Dir: root, Source: SourceWorkspace})
	result := loader.LoadAll()

	require.Len(t, result.Errors, 1)
}

func TestLoadAll_LaterRootOverridesEarlierOnCollision(t *testing.T) {
	bundledRoot := t.TempDir()
	workspaceRoot := t.TempDir()
	writeSkill(t, bundledRoot, "dup", "name: dup\ndescription: bundled version\n", "bundled body")
	writeSkill(t, workspaceRoot, "dup", "name: dup\ndescription: workspace version\n", "workspace body")

	loader := NewLoader(
		Root{Dir: workspaceRoot, Source: SourceWorkspace},
		Root{Dir: bundledRoot, Source: SourceBundled},
	)
	result := loader.LoadAll()

	require.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "workspace version", result.Skills["dup"].Description)
}

func TestLoadAll_MissingRootIsNotAnError(t *testing.T) {
	loader := NewLoader(Root{Dir: filepath.Join(t.TempDir(), "does-not-exist"), Source: SourceExtra})
	result := loader.LoadAll()
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Skills)
}

func TestValidName_Boundaries(t *testing.T) {
	sixtyFour := ""
	for i := 0; i < 64; i++ {
		sixtyFour += "a"
	}
	assert.True(t, ValidName(sixtyFour))
	assert.False(t, ValidName(sixtyFour+"a"))
	assert.False(t, ValidName("-leading-hyphen"))
	assert.False(t, ValidName("Has_Upper"))
}
