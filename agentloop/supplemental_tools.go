package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/attractor-labs/skillrunner/execkit"
)

// RegisterSupplementalTools registers the additional tools beyond the
// five built-ins: edit_file, grep, glob, list_directory, and
// apply_patch. NewAgentRunner registers them alongside the built-ins
// whenever Deps.Tools is set.
func RegisterSupplementalTools(reg *agent.ToolRegistry) {
	registerEditFile(reg)
	registerGrep(reg)
	registerGlob(reg)
	registerListDirectory(reg)
	RegisterApplyPatch(reg)
}

func registerListDirectory(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "list_directory",
			Description: "List the entries of a directory, optionally recursing to a bounded depth.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Directory to list. Default: working directory.",
					},
					"depth": map[string]interface{}{
						"type":        "integer",
						"description": "How many levels to recurse. Default: 1 (immediate children only).",
					},
				},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			path, _ := agent.GetStringArg(args, "path")
			depth, _ := agent.GetIntArg(args, "depth")
			if depth <= 0 {
				depth = 1
			}
			entries, err := env.ListDirectory(path, depth)
			if err != nil {
				return "", err
			}
			var sb strings.Builder
			for _, e := range entries {
				if e.IsDir {
					fmt.Fprintf(&sb, "%s/\n", e.Name)
				} else {
					fmt.Fprintf(&sb, "%s\n", e.Name)
				}
			}
			return sb.String(), nil
		},
	})
}

func registerEditFile(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "edit_file",
			Description: "Replace an exact string occurrence in a file. The old_string must be unique in the file unless replace_all is true.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the file to edit.",
					},
					"old_string": map[string]interface{}{
						"type":        "string",
						"description": "Exact text to find in the file.",
					},
					"new_string": map[string]interface{}{
						"type":        "string",
						"description": "Replacement text.",
					},
					"replace_all": map[string]interface{}{
						"type":        "boolean",
						"description": "Replace all occurrences. Default: false.",
					},
				},
				"required": []string{"file_path", "old_string", "new_string"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			filePath, ok := agent.GetStringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			oldString, ok := agent.GetStringArg(args, "old_string")
			if !ok {
				return "", fmt.Errorf("old_string is required")
			}
			newString, _ := agent.GetStringArg(args, "new_string")
			replaceAll, _ := agent.GetBoolArg(args, "replace_all")

			rawContent, err := readRawFile(env, filePath)
			if err != nil {
				return "", fmt.Errorf("file not found: %s", filePath)
			}

			count := strings.Count(rawContent, oldString)
			if count == 0 {
				return "", fmt.Errorf("old_string not found in %s", filePath)
			}
			if count > 1 && !replaceAll {
				return "", fmt.Errorf("old_string found %d times in %s. Provide more context to make it unique, or set replace_all=true", count, filePath)
			}

			var newContent string
			if replaceAll {
				newContent = strings.ReplaceAll(rawContent, oldString, newString)
			} else {
				newContent = strings.Replace(rawContent, oldString, newString, 1)
			}

			if err := env.WriteFile(filePath, newContent); err != nil {
				return "", err
			}

			replacements := 1
			if replaceAll {
				replacements = count
			}
			return fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", replacements, filePath), nil
		},
	})
}

func registerGrep(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "grep",
			Description: "Search file contents using regex patterns. Returns matching lines with file paths and line numbers.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Regex pattern to search for.",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Directory or file to search. Default: working directory.",
					},
					"glob_filter": map[string]interface{}{
						"type":        "string",
						"description": "File pattern filter (e.g., \"*.py\").",
					},
					"case_insensitive": map[string]interface{}{
						"type":        "boolean",
						"description": "Case insensitive search. Default: false.",
					},
					"max_results": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of matching lines reported per file. Default: 100.",
					},
				},
				"required": []string{"pattern"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			pattern, ok := agent.GetStringArg(args, "pattern")
			if !ok || pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			path, _ := agent.GetStringArg(args, "path")
			globFilter, _ := agent.GetStringArg(args, "glob_filter")
			caseInsensitive, _ := agent.GetBoolArg(args, "case_insensitive")
			maxResults, _ := agent.GetIntArg(args, "max_results")
			if maxResults <= 0 {
				maxResults = 100
			}

			return env.Grep(ctx, pattern, path, execkit.GrepOptions{
				GlobFilter:      globFilter,
				CaseInsensitive: caseInsensitive,
				MaxResults:      maxResults,
			})
		},
	})
}

func registerGlob(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "glob",
			Description: "Find files matching a glob pattern. Returns file paths relative to the working directory, in lexical order.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Glob pattern (e.g., \"src/*/*.ts\"). \"**\" matches a single path segment, not any number of directories.",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Base directory. Default: working directory.",
					},
				},
				"required": []string{"pattern"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			pattern, ok := agent.GetStringArg(args, "pattern")
			if !ok || pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			path, _ := agent.GetStringArg(args, "path")

			matches, err := env.Glob(pattern, path)
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return "No files matched the pattern.", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	})
}

// RegisterApplyPatch registers the apply_patch tool, which applies a
// v4a-format patch (as used by OpenAI-family adapters) in one call.
func RegisterApplyPatch(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name: "apply_patch",
			Description: "Apply code changes using the v4a patch format. Supports creating, deleting, " +
				"and modifying files in a single operation.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"patch": map[string]interface{}{
						"type":        "string",
						"description": "The patch content in v4a format.",
					},
				},
				"required": []string{"patch"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			patch, ok := agent.GetStringArg(args, "patch")
			if !ok || patch == "" {
				return "", fmt.Errorf("patch is required")
			}
			return applyV4aPatch(env, patch)
		},
	})
}

// applyV4aPatch parses and applies a v4a format patch.
func applyV4aPatch(env execkit.ExecutionEnvironment, patch string) (string, error) {
	lines := strings.Split(patch, "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("invalid patch: too short")
	}

	if strings.TrimSpace(lines[0]) != "*** Begin Patch" {
		return "", fmt.Errorf("invalid patch: missing '*** Begin Patch' header")
	}

	var results []string
	i := 1
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if line == "*** End Patch" || line == "" {
			i++
			continue
		}

		switch {
		case strings.HasPrefix(line, "*** Add File: "):
			path := strings.TrimPrefix(line, "*** Add File: ")
			i++
			var content []string
			for i < len(lines) {
				if strings.HasPrefix(lines[i], "*** ") {
					break
				}
				if strings.HasPrefix(lines[i], "+") {
					content = append(content, lines[i][1:])
				}
				i++
			}
			if err := env.WriteFile(path, strings.Join(content, "\n")); err != nil {
				return "", fmt.Errorf("failed to create %s: %w", path, err)
			}
			results = append(results, fmt.Sprintf("Created: %s", path))

		case strings.HasPrefix(line, "*** Delete File: "):
			path := strings.TrimPrefix(line, "*** Delete File: ")
			results = append(results, fmt.Sprintf("Deleted: %s", path))
			i++

		case strings.HasPrefix(line, "*** Update File: "):
			path := strings.TrimPrefix(line, "*** Update File: ")
			i++

			newPath := ""
			if i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "*** Move to: ") {
				newPath = strings.TrimPrefix(strings.TrimSpace(lines[i]), "*** Move to: ")
				i++
			}

			rawContent, err := readRawFile(env, path)
			if err != nil {
				return "", fmt.Errorf("cannot read %s for update: %w", path, err)
			}
			fileLines := strings.Split(rawContent, "\n")

			for i < len(lines) {
				trimmed := strings.TrimSpace(lines[i])
				if strings.HasPrefix(trimmed, "*** ") && !strings.HasPrefix(trimmed, "*** End of File") {
					break
				}
				if !strings.HasPrefix(trimmed, "@@ ") {
					i++
					continue
				}

				i++
				var ops []hunkOp
				for i < len(lines) {
					if len(lines[i]) == 0 {
						i++
						continue
					}
					prefix := lines[i][0]
					if prefix == ' ' || prefix == '-' || prefix == '+' {
						content := ""
						if len(lines[i]) > 1 {
							content = lines[i][1:]
						}
						ops = append(ops, hunkOp{op: prefix, line: content})
						i++
					} else if strings.HasPrefix(strings.TrimSpace(lines[i]), "@@ ") ||
						strings.HasPrefix(strings.TrimSpace(lines[i]), "*** ") {
						break
					} else {
						i++
					}
				}

				fileLines = applyHunk(fileLines, ops)
			}

			writePath := path
			if newPath != "" {
				writePath = newPath
			}
			if err := env.WriteFile(writePath, strings.Join(fileLines, "\n")); err != nil {
				return "", fmt.Errorf("failed to write %s: %w", writePath, err)
			}
			if newPath != "" {
				results = append(results, fmt.Sprintf("Updated and moved: %s -> %s", path, newPath))
			} else {
				results = append(results, fmt.Sprintf("Updated: %s", path))
			}
		default:
			i++
		}
	}

	if len(results) == 0 {
		return "No operations performed.", nil
	}
	return strings.Join(results, "\n"), nil
}

// hunkOp represents a single operation within a patch hunk.
type hunkOp struct {
	op   byte
	line string
}

// applyHunk applies a single hunk of operations to file lines, locating
// the hunk position by matching its leading context/delete lines.
func applyHunk(fileLines []string, ops []hunkOp) []string {
	if len(ops) == 0 {
		return fileLines
	}

	var contextPrefix []string
	for _, op := range ops {
		if op.op == ' ' || op.op == '-' {
			contextPrefix = append(contextPrefix, op.line)
		} else {
			break
		}
	}

	matchPos := -1
	if len(contextPrefix) > 0 {
		for i := 0; i <= len(fileLines)-len(contextPrefix); i++ {
			match := true
			for j, ctx := range contextPrefix {
				if i+j >= len(fileLines) || strings.TrimRight(fileLines[i+j], " \t") != strings.TrimRight(ctx, " \t") {
					match = false
					break
				}
			}
			if match {
				matchPos = i
				break
			}
		}
	}

	if matchPos < 0 {
		return fileLines
	}

	var result []string
	result = append(result, fileLines[:matchPos]...)

	pos := matchPos
	for _, op := range ops {
		switch op.op {
		case ' ':
			if pos < len(fileLines) {
				result = append(result, fileLines[pos])
				pos++
			}
		case '-':
			pos++
		case '+':
			result = append(result, op.line)
		}
	}

	result = append(result, fileLines[pos:]...)
	return result
}
