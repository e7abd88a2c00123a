package agentloop

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/attractor-labs/skillrunner/skill"
)

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// runFork implements synchronous fork execution: a skill declaring
// context: fork (or the skill tool invoked against one) runs to
// completion as an isolated child AgentRunner before its caller's
// inner loop resumes. The child shares its parent's adapter, tool
// registry, event bus, context manager, and skill snapshot, and its
// abort state is the parent's own, so aborting the parent also
// interrupts an in-flight child.
func (r *AgentRunner) runFork(ctx context.Context, sk *skill.Skill, resolvedContent, arguments string) (string, error) {
	if r.config.forkDepth >= r.config.MaxForkDepth {
		return "", fmt.Errorf("agentloop: max fork depth (%d) exceeded invoking skill %q", r.config.MaxForkDepth, sk.Name)
	}

	childID, err := newUUID()
	if err != nil {
		childID = sk.Name
	}

	childConfig := r.config
	childConfig.forkDepth = r.config.forkDepth + 1
	if sk.Metadata.Model != "" {
		childConfig.Model = sk.Metadata.Model
	}

	child := &AgentRunner{
		id:           childID,
		config:       childConfig,
		adapter:      r.adapter,
		tools:        r.tools,
		bus:          r.bus,
		ctxMgr:       r.ctxMgr,
		env:          r.env,
		snapshot:     r.snapshot,
		onDebugEvent: r.onDebugEvent,
		streamSink:   r.streamSink,
		streamTag:    childID,
		abort:        r.abort,
		history:      []agent.Message{agent.NewSystemMessage(resolvedContent)},
	}
	if sk.Metadata.AllowedTools != nil {
		child.activeAllowedTools = sk.Metadata.AllowedTools
	}
	child.activePrimaryEnv = sk.Metadata.PrimaryEnv

	final, err := child.Chat(ctx, arguments)
	if err != nil {
		return "", fmt.Errorf("agentloop: fork of skill %q failed: %w", sk.Name, err)
	}
	return final.Content, nil
}
