package execkit

import "strings"

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables excluded from the caller-env component of a composed
// subprocess environment, unless explicitly allow-listed.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

var alwaysSafeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true, "CARGO_HOME": true,
	"NVM_DIR": true, "RUSTUP_HOME": true, "PYENV_ROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// filterCallerEnv drops variables that look like secrets from the
// caller's process environment before it becomes the base layer of a
// subprocess environment.
func filterCallerEnv(callerEnv []string) []string {
	filtered := make([]string, 0, len(callerEnv))
	for _, kv := range callerEnv {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if alwaysSafeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}

// ComposeEnv builds a subprocess environment as (caller env, filtered
// for likely secrets) ⊕ (primaryEnv, a skill's designated credential
// variable) ⊕ (explicitEnv, the caller-supplied overrides for this
// call). Later layers win on key collision. The caller's own process
// environment is never mutated — this returns a new slice.
func ComposeEnv(callerEnv []string, primaryEnv map[string]string, explicitEnv map[string]string) []string {
	merged := make(map[string]string, len(callerEnv)+len(primaryEnv)+len(explicitEnv))
	order := make([]string, 0, len(callerEnv)+len(primaryEnv)+len(explicitEnv))

	set := func(name, value string) {
		if _, exists := merged[name]; !exists {
			order = append(order, name)
		}
		merged[name] = value
	}

	for _, kv := range filterCallerEnv(callerEnv) {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		set(name, value)
	}
	for name, value := range primaryEnv {
		set(name, value)
	}
	for name, value := range explicitEnv {
		set(name, value)
	}

	out := make([]string, 0, len(order))
	for _, name := range order {
		out = append(out, name+"="+merged[name])
	}
	return out
}
