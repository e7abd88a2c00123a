package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/attractor-labs/skillrunner/execkit"
)

// RegisterBuiltinTools registers the five spec-mandated built-in tools:
// execute, execute_script, read, write, and skill. defaultTimeoutMs and
// maxTimeoutMs bound the timeout accepted from a tool call.
func RegisterBuiltinTools(reg *agent.ToolRegistry, defaultTimeoutMs, maxTimeoutMs int, skillTool agent.ToolExecutor) {
	registerExecute(reg, defaultTimeoutMs, maxTimeoutMs)
	registerExecuteScript(reg, defaultTimeoutMs, maxTimeoutMs)
	registerRead(reg)
	registerWrite(reg)
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "skill",
			Description: "Load a skill's full content on demand, resolving placeholders and !`cmd` expansion. If the skill declares context=fork, runs it to completion as a child agent and returns its final answer instead.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "The skill name to load.",
					},
					"arguments": map[string]interface{}{
						"type":        "string",
						"description": "Argument string passed to the skill's placeholder substitution.",
					},
				},
				"required": []string{"name"},
			},
		},
		Executor: skillTool,
	})
}

func clampTimeout(requested, defaultMs, maxMs int) int {
	if requested <= 0 {
		return defaultMs
	}
	if requested > maxMs {
		return maxMs
	}
	return requested
}

func formatExecResult(result *execkit.ExecResult, timeoutMs int) string {
	var sb strings.Builder
	sb.WriteString(result.Output())

	if result.TimedOut {
		fmt.Fprintf(&sb, "\n\n[ERROR: Command timed out after %dms. Partial output is shown above.]", timeoutMs)
	} else if result.Aborted {
		sb.WriteString("\n\n[ERROR: Command aborted.]")
	} else if result.ExitCode != 0 {
		fmt.Fprintf(&sb, "\n\n[Exit code: %d]", result.ExitCode)
	}
	return sb.String()
}

func registerExecute(reg *agent.ToolRegistry, defaultTimeoutMs, maxTimeoutMs int) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "execute",
			Description: "Execute a shell command. Returns stdout, stderr, and exit code.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"command": map[string]interface{}{
						"type":        "string",
						"description": "The command to run.",
					},
					"timeout": map[string]interface{}{
						"type":        "integer",
						"description": "Timeout in milliseconds.",
					},
					"cwd": map[string]interface{}{
						"type":        "string",
						"description": "Working directory for the command.",
					},
				},
				"required": []string{"command"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			command, ok := agent.GetStringArg(args, "command")
			if !ok || command == "" {
				return "", fmt.Errorf("command is required")
			}
			cwd, _ := agent.GetStringArg(args, "cwd")
			timeoutMs, _ := agent.GetIntArg(args, "timeout")
			timeoutMs = clampTimeout(timeoutMs, defaultTimeoutMs, maxTimeoutMs)

			result, err := env.ExecCommand(ctx, command, timeoutMs, cwd, primaryEnvFromContext(ctx), nil, nil, abort)
			if err != nil {
				return "", err
			}
			return formatExecResult(result, timeoutMs), nil
		},
	})
}

func registerExecuteScript(reg *agent.ToolRegistry, defaultTimeoutMs, maxTimeoutMs int) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "execute_script",
			Description: "Write a script body to a temp file and execute it. The temp file is deleted on return.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"script": map[string]interface{}{
						"type":        "string",
						"description": "The script body to run.",
					},
					"timeout": map[string]interface{}{
						"type":        "integer",
						"description": "Timeout in milliseconds.",
					},
					"cwd": map[string]interface{}{
						"type":        "string",
						"description": "Working directory for the script.",
					},
				},
				"required": []string{"script"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			script, ok := agent.GetStringArg(args, "script")
			if !ok || script == "" {
				return "", fmt.Errorf("script is required")
			}
			cwd, _ := agent.GetStringArg(args, "cwd")
			timeoutMs, _ := agent.GetIntArg(args, "timeout")
			timeoutMs = clampTimeout(timeoutMs, defaultTimeoutMs, maxTimeoutMs)

			result, err := env.ExecScript(ctx, script, timeoutMs, cwd, primaryEnvFromContext(ctx), nil, nil, abort)
			if err != nil {
				return "", err
			}
			return formatExecResult(result, timeoutMs), nil
		},
	})
}

func registerRead(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "read",
			Description: "Read a file from the filesystem. Returns line-numbered content.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the file to read.",
					},
					"offset": map[string]interface{}{
						"type":        "integer",
						"description": "1-based line number to start reading from.",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of lines to read. Default: 2000.",
					},
				},
				"required": []string{"path"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			path, ok := agent.GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			offset, _ := agent.GetIntArg(args, "offset")
			limit, _ := agent.GetIntArg(args, "limit")
			if limit == 0 {
				limit = 2000
			}
			return env.ReadFile(path, offset, limit)
		},
	})
}

func registerWrite(reg *agent.ToolRegistry) {
	reg.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{
			Name:        "write",
			Description: "Write content to a file. Creates the file and parent directories if needed.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path to write to.",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "The full file content to write.",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			args, err := agent.ParseToolArguments(raw)
			if err != nil {
				return "", err
			}
			path, ok := agent.GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			content, ok := agent.GetStringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}
			if err := env.WriteFile(path, content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
		},
	})
}

// readRawFile reads a file without the "N | " line-number prefix
// applied by ReadFile.
func readRawFile(env execkit.ExecutionEnvironment, path string) (string, error) {
	numbered, err := env.ReadFile(path, 0, 0)
	if err != nil {
		return "", err
	}
	lines := strings.Split(numbered, "\n")
	var raw []string
	for _, line := range lines {
		if idx := strings.Index(line, " | "); idx >= 0 {
			raw = append(raw, line[idx+3:])
		} else if line != "" {
			raw = append(raw, line)
		}
	}
	return strings.Join(raw, "\n"), nil
}
