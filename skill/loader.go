package skill

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Root is one directory the loader scans for skills, tagged with the
// Source that determines its override priority.
type Root struct {
	Dir    string
	Source Source
}

// Loader walks a fixed set of Roots, parsing every SKILL.md it finds
// into a Skill record.
type Loader struct {
	roots []Root
}

func NewLoader(roots ...Root) *Loader {
	return &Loader{roots: roots}
}

// LoadResult is the outcome of a full load pass: the merged skill set
// plus every non-fatal problem encountered along the way.
type LoadResult struct {
	Skills   map[string]*Skill
	Errors   []*LoaderError
	Warnings []string
}

// LoadAll scans every root in fixed priority order (bundled, managed,
// workspace/plugin, extra) and, within a root, in lexicographic path
// order. A skill whose name collides with one already loaded from an
// earlier or equal-priority root is overridden and a warning is
// recorded; skills that fail to parse are skipped and recorded as
// LoaderErrors, never aborting the whole load.
func (l *Loader) LoadAll() LoadResult {
	result := LoadResult{Skills: map[string]*Skill{}}

	roots := append([]Root(nil), l.roots...)
	sort.SliceStable(roots, func(i, j int) bool {
		return sourcePriority[roots[i].Source] < sourcePriority[roots[j].Source]
	})

	for _, root := range roots {
		paths := findSkillFiles(root.Dir)
		sort.Strings(paths)
		for _, path := range paths {
			sk, err := parseSkillFile(path, root.Source)
			if err != nil {
				var lerr *LoaderError
				if e, ok := err.(*LoaderError); ok {
					lerr = e
				} else {
					lerr = &LoaderError{Path: path, Reason: err.Error()}
				}
				result.Errors = append(result.Errors, lerr)
				continue
			}

			if existing, ok := result.Skills[sk.Name]; ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"skill %q at %s overrides earlier definition at %s (%s -> %s)",
					sk.Name, path, existing.Path, existing.Source, sk.Source))
			}
			result.Skills[sk.Name] = sk
		}
	}

	return result
}

// findSkillFiles returns every SKILL.md under dir. A missing root
// directory yields no files and no error: an unconfigured root is not
// a failure.
func findSkillFiles(dir string) []string {
	var out []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, entry.Name(), "SKILL.md")
		if _, err := os.Stat(candidate); err == nil {
			out = append(out, candidate)
		}
	}
	return out
}

// parseSkillFile parses one SKILL.md's YAML front-matter and Markdown
// body into a Skill.
func parseSkillFile(path string, source Source) (*Skill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoaderError{Path: path, Reason: err.Error()}
	}

	yamlLines, body, err := splitFrontMatter(string(raw))
	if err != nil {
		return nil, &LoaderError{Path: path, Reason: err.Error()}
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &fm); err != nil {
		return nil, &LoaderError{Path: path, Reason: "invalid front-matter YAML: " + err.Error()}
	}

	if fm.Name == "" || fm.Description == "" {
		return nil, &LoaderError{Path: path, Reason: "missing required name or description"}
	}
	if !ValidName(fm.Name) {
		return nil, &LoaderError{Path: path, Reason: fmt.Sprintf("invalid name %q", fm.Name)}
	}
	if len(fm.Description) > maxDescriptionLen {
		return nil, &LoaderError{Path: path, Reason: fmt.Sprintf("description exceeds %d characters", maxDescriptionLen)}
	}

	ctx := ContextInline
	if fm.Context == string(ContextFork) {
		ctx = ContextFork
	}

	userInvocable := true
	if fm.UserInvocable != nil {
		userInvocable = *fm.UserInvocable
	}

	var allowed map[string]bool
	if len(fm.AllowedTools) > 0 {
		allowed = map[string]bool{}
		for _, name := range fm.AllowedTools {
			allowed[name] = true
		}
	}

	sk := &Skill{
		Name:        fm.Name,
		Description: fm.Description,
		Content:     strings.TrimSpace(body),
		Source:      source,
		Path:        path,
		Actions:     fm.Actions,
		Metadata: Metadata{
			Model:                  fm.Model,
			Context:                ctx,
			AllowedTools:           allowed,
			ArgumentHint:           fm.ArgumentHint,
			UserInvocable:          userInvocable,
			DisableModelInvocation: fm.DisableModelInvocation,
			Always:                 fm.Always,
			Emoji:                  fm.Metadata.Emoji,
			PrimaryEnv:             fm.Metadata.PrimaryEnv,
			Requires:               fm.Metadata.Requires,
			Install:                fm.Metadata.Install,
			Hooks:                  fm.Hooks,
		},
	}
	return sk, nil
}

// splitFrontMatter extracts the lines between the first pair of "---"
// delimiter lines as YAML, and returns everything after the closing
// delimiter as the Markdown body.
func splitFrontMatter(raw string) (yamlLines []string, body string, err error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, "", fmt.Errorf("missing front-matter delimiter")
	}

	var lines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		lines = append(lines, line)
	}
	if !closed {
		return nil, "", fmt.Errorf("unterminated front-matter block")
	}

	var rest strings.Builder
	for scanner.Scan() {
		rest.WriteString(scanner.Text())
		rest.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}

	return lines, rest.String(), nil
}
