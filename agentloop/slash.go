package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/attractor-labs/skillrunner/execkit"
	"github.com/attractor-labs/skillrunner/skill"
)

// slashResolution is the outcome of resolving a leading "/name args"
// message against the active skill snapshot.
type slashResolution struct {
	isFork               bool
	forkResult           string
	resolvedContent      string
	modelOverride        string
	allowedToolsOverride map[string]bool
	primaryEnv           string
}

// parseSlashCommand splits a "/name rest of args" message. It reports
// ok=false for anything that isn't a slash command at all, leaving the
// caller free to treat the message as ordinary conversational input.
func parseSlashCommand(message string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	rest := trimmed[1:]
	if rest == "" {
		return "", "", false
	}
	parts := strings.SplitN(rest, " ", 2)
	name = parts[0]
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return name, args, true
}

// resolveSlash locates the named skill, rejecting one that either
// doesn't exist or wasn't declared user-invocable, substitutes
// placeholders, and either runs a fork to completion or hands back the
// resolved content for the caller to append and loop on inline.
func (r *AgentRunner) resolveSlash(ctx context.Context, message string) (*slashResolution, bool, error) {
	name, argString, ok := parseSlashCommand(message)
	if !ok {
		return nil, false, nil
	}

	sk := r.findSkill(name)
	if sk == nil {
		return nil, true, fmt.Errorf("agentloop: no skill named %q", name)
	}
	if !sk.Metadata.UserInvocable {
		return nil, true, fmt.Errorf("agentloop: skill %q is not user-invocable", name)
	}

	resolved := skill.SubstitutePlaceholders(sk.Content, argString)

	if sk.Metadata.Context == skill.ContextFork {
		result, err := r.runFork(ctx, sk, resolved, argString)
		if err != nil {
			return nil, true, err
		}
		return &slashResolution{isFork: true, forkResult: result}, true, nil
	}

	return &slashResolution{
		resolvedContent:      resolved,
		modelOverride:        sk.Metadata.Model,
		allowedToolsOverride: sk.Metadata.AllowedTools,
		primaryEnv:           sk.Metadata.PrimaryEnv,
	}, true, nil
}

// skillToolExecutor backs the "skill" built-in tool: it lets the model
// load a skill's full content on demand (the on-demand path for a
// skill_description_budget-trimmed system prompt) or, for a
// context: fork skill, run it to completion as a child agent.
func (r *AgentRunner) skillToolExecutor(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
	args, err := agent.ParseToolArguments(raw)
	if err != nil {
		return "", err
	}
	name, ok := agent.GetStringArg(args, "name")
	if !ok || name == "" {
		return "", fmt.Errorf("name is required")
	}
	arguments, _ := agent.GetStringArg(args, "arguments")

	sk := r.findSkill(name)
	if sk == nil {
		return "", fmt.Errorf("unknown skill: %s", name)
	}
	if sk.Metadata.DisableModelInvocation {
		return "", fmt.Errorf("skill %q cannot be invoked by the model", name)
	}

	resolved := skill.SubstitutePlaceholders(sk.Content, arguments)

	if sk.Metadata.Context == skill.ContextFork {
		return r.runFork(ctx, sk, resolved, arguments)
	}
	return resolved, nil
}
