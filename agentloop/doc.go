// Package agentloop wires the skill pipeline, the event bus, the
// context manager, and a unifiedllm-backed model adapter into a
// runnable agent: the ReAct-style scheduler that turns a user message
// into zero or more LLM calls interleaved with sequential tool
// dispatch, steering, and context compaction.
//
// # Architecture
//
//   - AgentRunner: the central scheduler. One active turn at a time;
//     concurrent Chat calls on the same runner are rejected.
//   - RegisterBuiltinTools / RegisterSupplementalTools: the tool
//     surface a runner exposes to the model (execute, execute_script,
//     read, write, skill, plus edit_file/grep/glob/list_directory/apply_patch).
//   - runFork: synchronous child-runner execution for skills declaring
//     context: fork, and for the skill tool's fork path.
//   - resolveSlash: resolves a leading "/name args" message
//     against the active skill snapshot.
//
// # Quick start
//
//	runner := agentloop.NewAgentRunner(agentloop.Config{Model: "gpt-5.2"}, deps, "you are a helpful agent")
//	reply, err := runner.Chat(ctx, "list the files in this directory")
package agentloop
