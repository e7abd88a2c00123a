package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PromptFormat selects the rendering of an eligible skill set into
// system-prompt text.
type PromptFormat string

const (
	// FormatStructuredTag renders each skill as a delimited tag block.
	// This is the default.
	FormatStructuredTag PromptFormat = "structured-tag"
	// FormatHeadingPrefixed renders each skill as a Markdown section
	// with a "## <emoji> <name>" header.
	FormatHeadingPrefixed PromptFormat = "heading-prefixed"
	// FormatMachineArray renders the skill set as a machine-readable
	// array of {name, description, content} records.
	FormatMachineArray PromptFormat = "machine-array"
)

// Snapshot is an immutable, versioned view of the currently eligible
// skill set. Once built it never mutates; a hot reload produces a new
// Snapshot with Version+1.
type Snapshot struct {
	Skills    []*Skill
	Prompt    string
	Version   int
	CreatedAt time.Time
	Hash      string
}

// BuildSnapshot renders eligible into prompt text using format,
// producing a new immutable Snapshot. version must be supplied by the
// caller (typically the prior snapshot's Version+1, starting at 1).
func BuildSnapshot(eligible []*Skill, format PromptFormat, version int, now time.Time) *Snapshot {
	sorted := append([]*Skill(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return &Snapshot{
		Skills:    sorted,
		Prompt:    formatPrompt(sorted, format),
		Version:   version,
		CreatedAt: now,
		Hash:      hashSkills(sorted),
	}
}

// BuildMetadataSnapshot builds a snapshot using only the name and
// description of each skill (the skill_description_budget mode used
// when the system prompt is optimised for on-demand loading via the
// skill tool). budget, if positive, caps the total rendered character
// length; skills beyond the cap are dropped from Skills but their
// names remain resolvable via the loader for on-demand full-content
// retrieval.
func BuildMetadataSnapshot(eligible []*Skill, budget int, version int, now time.Time) *Snapshot {
	sorted := append([]*Skill(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	included := sorted[:0:0]
	for _, sk := range sorted {
		line := fmt.Sprintf("- %s: %s\n", sk.Name, sk.Description)
		if budget > 0 && b.Len()+len(line) > budget {
			continue
		}
		b.WriteString(line)
		included = append(included, sk)
	}

	return &Snapshot{
		Skills:    included,
		Prompt:    b.String(),
		Version:   version,
		CreatedAt: now,
		Hash:      hashSkills(included),
	}
}

func formatPrompt(skills []*Skill, format PromptFormat) string {
	switch format {
	case FormatHeadingPrefixed:
		return formatHeadingPrefixed(skills)
	case FormatMachineArray:
		return formatMachineArray(skills)
	default:
		return formatStructuredTag(skills)
	}
}

func formatStructuredTag(skills []*Skill) string {
	var b strings.Builder
	for _, sk := range skills {
		fmt.Fprintf(&b, "<skill name=%q emoji=%q description=%q>\n", sk.Name, sk.Metadata.Emoji, sk.Description)
		b.WriteString(sk.Content)
		b.WriteString("\n</skill>\n")
	}
	return b.String()
}

func formatHeadingPrefixed(skills []*Skill) string {
	var b strings.Builder
	for _, sk := range skills {
		emoji := sk.Metadata.Emoji
		if emoji != "" {
			emoji += " "
		}
		fmt.Fprintf(&b, "## %s%s\n\n%s\n\n", emoji, sk.Name, sk.Content)
	}
	return b.String()
}

func formatMachineArray(skills []*Skill) string {
	var b strings.Builder
	b.WriteString("[")
	for i, sk := range skills {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "{%q:%q,%q:%q,%q:%q}", "name", sk.Name, "description", sk.Description, "content", sk.Content)
	}
	b.WriteString("]")
	return b.String()
}

// hashSkills computes a stable 128-bit-minimum digest over the sorted
// serialised skill set. The exact algorithm is unobservable to callers
// beyond stability; sha256 truncated to 16 bytes satisfies the
// contract without pulling in an extra hash dependency the corpus
// doesn't otherwise exercise.
func hashSkills(skills []*Skill) string {
	h := sha256.New()
	for _, sk := range skills {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\n", sk.Name, sk.Source, sk.Description, sk.Content)
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
