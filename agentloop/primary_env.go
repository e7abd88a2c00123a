package agentloop

import "context"

// primaryEnvKey is the context key carrying the active skill's
// primary_env credential (name -> raw caller value) from runOneTool
// into the execute/execute_script executors, which have no other way
// to reach the invoking AgentRunner's state.
type primaryEnvKey struct{}

func withPrimaryEnv(ctx context.Context, vars map[string]string) context.Context {
	if len(vars) == 0 {
		return ctx
	}
	return context.WithValue(ctx, primaryEnvKey{}, vars)
}

func primaryEnvFromContext(ctx context.Context) map[string]string {
	vars, _ := ctx.Value(primaryEnvKey{}).(map[string]string)
	return vars
}
