// Package skill implements the skill pipeline: parsing Markdown +
// YAML front-matter into immutable skill records, filtering them for
// eligibility in the current environment, and formatting the eligible
// set into a versioned, hashed system-prompt fragment.
package skill

import "regexp"

// Source identifies which root a skill was loaded from. Sources are
// ordered lowest to highest priority; later sources override earlier
// ones on a name collision.
type Source string

const (
	SourceBundled   Source = "bundled"
	SourceManaged   Source = "managed"
	SourceWorkspace Source = "workspace"
	SourcePlugin    Source = "plugin"
	SourceExtra     Source = "extra"
)

// sourcePriority gives the fixed load order: bundled < managed <
// workspace < extra. Plugin sources rank alongside workspace sources
// (both are third-party-supplied roots layered above the bundled and
// managed defaults, below the catch-all extra roots).
var sourcePriority = map[Source]int{
	SourceBundled:   0,
	SourceManaged:   1,
	SourceWorkspace: 2,
	SourcePlugin:    2,
	SourceExtra:     3,
}

// Context selects whether a skill's content is appended inline to the
// current conversation or run in an isolated child AgentRunner.
type Context string

const (
	ContextInline Context = "inline"
	ContextFork   Context = "fork"
)

// Requires captures a skill's environment preconditions.
type Requires struct {
	Bins    []string `yaml:"bins"`
	AnyBins []string `yaml:"any_bins"`
	Env     []string `yaml:"env"`
	OS      []string `yaml:"os"`
}

// ActionParam describes one parameter of a deterministic named action.
type ActionParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Action is a deterministic named script a skill exposes outside the
// model-invocation path.
type Action struct {
	Script string        `yaml:"script"`
	Output string        `yaml:"output"`
	Params []ActionParam `yaml:"params"`
}

// frontMatter is the raw shape of a SKILL.md's YAML front-matter block,
// unmarshalled directly and then validated/normalised into Metadata.
type frontMatter struct {
	Name                   string              `yaml:"name"`
	Description            string              `yaml:"description"`
	Model                  string              `yaml:"model"`
	Context                string              `yaml:"context"`
	AllowedTools           []string            `yaml:"allowed-tools"`
	ArgumentHint           string              `yaml:"argument-hint"`
	UserInvocable          *bool               `yaml:"user-invocable"`
	DisableModelInvocation bool                `yaml:"disable-model-invocation"`
	Always                 bool                `yaml:"always"`
	Metadata               frontMatterMetadata `yaml:"metadata"`
	Actions                map[string]Action   `yaml:"actions"`
	Hooks                  map[string]string   `yaml:"hooks"`
}

type frontMatterMetadata struct {
	Emoji      string   `yaml:"emoji"`
	PrimaryEnv string   `yaml:"primary_env"`
	Requires   Requires `yaml:"requires"`
	Install    []string `yaml:"install"`
}

// Metadata is a skill's normalised, spec-shaped metadata.
type Metadata struct {
	Model                  string
	Context                Context
	AllowedTools           map[string]bool
	ArgumentHint           string
	UserInvocable          bool
	DisableModelInvocation bool
	Always                 bool
	Emoji                  string
	PrimaryEnv             string
	Requires               Requires
	Install                []string
	// Hooks maps a lifecycle point name (e.g. "before_tool_call") to a
	// shell command run via the placeholder-substitution rules.
	Hooks map[string]string
}

// Skill is a named capability, immutable after load. Identity is by
// Name; later sources override earlier ones with an equal name.
type Skill struct {
	Name        string
	Description string
	Content     string
	Source      Source
	Metadata    Metadata
	Actions     map[string]Action

	// Path is the SKILL.md file this record was parsed from, kept for
	// diagnostics and for resolving action script paths.
	Path string
}

// nameRE is the pure name-validation predicate: lowercase alphanumerics
// and hyphens, no leading hyphen, at most 64 characters.
var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

const maxDescriptionLen = 1024

// LoaderError reports why one skill file failed to load. The offending
// skill is skipped; other skills continue loading normally.
type LoaderError struct {
	Path   string
	Reason string
}

func (e *LoaderError) Error() string {
	return e.Path + ": " + e.Reason
}
