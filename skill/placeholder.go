package skill

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	shellSubstitutionTimeout = 10 * time.Second
	maxShellSubstitutions    = 8
)

var (
	envVarRE  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	posArgRE  = regexp.MustCompile(`\$([1-9])`)
	shellCmdRE = regexp.MustCompile("!`([^`]*)`")
)

// SubstitutePlaceholders resolves $ARGUMENTS, $1..$9, ${ENV_VAR}, and
// !`cmd` inline-shell placeholders in content before it is sent to the
// LLM, per the fixed order: literal placeholders first, then shell
// substitution last so a command's own output is never itself
// re-scanned for placeholders. A single shell-substitution failure
// never fails the overall expansion; the offending span is replaced
// with a deterministic error marker instead.
func SubstitutePlaceholders(content, arguments string) string {
	out := strings.ReplaceAll(content, "$ARGUMENTS", arguments)

	args := strings.Fields(arguments)
	out = posArgRE.ReplaceAllStringFunc(out, func(match string) string {
		n, _ := strconv.Atoi(match[1:])
		if n >= 1 && n <= len(args) {
			return args[n-1]
		}
		return ""
	})

	out = envVarRE.ReplaceAllStringFunc(out, func(match string) string {
		name := envVarRE.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	out = expandShellSubstitutions(out)

	return out
}

// expandShellSubstitutions runs at most maxShellSubstitutions !`cmd`
// spans through the shell, each capped at shellSubstitutionTimeout,
// with stderr discarded and trailing newlines trimmed from stdout.
func expandShellSubstitutions(content string) string {
	count := 0
	return shellCmdRE.ReplaceAllStringFunc(content, func(match string) string {
		count++
		if count > maxShellSubstitutions {
			return "[ERROR: exceeded maximum of 8 inline shell substitutions]"
		}

		cmdText := shellCmdRE.FindStringSubmatch(match)[1]
		out, err := runShellSubstitution(cmdText)
		if err != nil {
			return "[ERROR: inline shell substitution failed: " + err.Error() + "]"
		}
		return out
	})
}

func runShellSubstitution(cmdText string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), shellSubstitutionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", cmdText)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ctx.Err()
		}
		return "", err
	}

	return strings.TrimRight(stdout.String(), "\n"), nil
}
