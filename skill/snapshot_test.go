package skill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSkills() []*Skill {
	return []*Skill{
		{Name: "zeta", Description: "last alphabetically", Content: "zeta body", Metadata: Metadata{Emoji: "z"}},
		{Name: "alpha", Description: "first alphabetically", Content: "alpha body", Metadata: Metadata{Emoji: "a"}},
	}
}

func TestBuildSnapshot_StableOrderAndImmutability(t *testing.T) {
	now := time.Unix(0, 0)
	snap := BuildSnapshot(sampleSkills(), FormatStructuredTag, 1, now)

	require.Len(t, snap.Skills, 2)
	assert.Equal(t, "alpha", snap.Skills[0].Name)
	assert.Equal(t, "zeta", snap.Skills[1].Name)

	prompt1 := snap.Prompt
	prompt2 := snap.Prompt
	assert.Equal(t, prompt1, prompt2)
}

func TestBuildSnapshot_IdenticalInputsHashIdentically(t *testing.T) {
	now := time.Unix(0, 0)
	snap1 := BuildSnapshot(sampleSkills(), FormatStructuredTag, 1, now)
	snap2 := BuildSnapshot(sampleSkills(), FormatStructuredTag, 2, now)
	assert.Equal(t, snap1.Hash, snap2.Hash)
}

func TestBuildSnapshot_HeadingPrefixedFormat(t *testing.T) {
	snap := BuildSnapshot(sampleSkills(), FormatHeadingPrefixed, 1, time.Unix(0, 0))
	assert.Contains(t, snap.Prompt, "## a alpha")
	assert.Contains(t, snap.Prompt, "## z zeta")
}

func TestBuildSnapshot_MachineArrayFormat(t *testing.T) {
	snap := BuildSnapshot(sampleSkills(), FormatMachineArray, 1, time.Unix(0, 0))
	assert.True(t, snap.Prompt[0] == '[')
	assert.Contains(t, snap.Prompt, `"name":"alpha"`)
}

func TestBuildMetadataSnapshot_OnlyNameAndDescription(t *testing.T) {
	snap := BuildMetadataSnapshot(sampleSkills(), 0, 1, time.Unix(0, 0))
	assert.NotContains(t, snap.Prompt, "alpha body")
	assert.Contains(t, snap.Prompt, "first alphabetically")
}

func TestBuildMetadataSnapshot_RespectsBudget(t *testing.T) {
	skills := sampleSkills()
	snap := BuildMetadataSnapshot(skills, 10, 1, time.Unix(0, 0))
	assert.Less(t, len(snap.Skills), len(skills))
}
