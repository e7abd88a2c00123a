package skill

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitutePlaceholders_Arguments(t *testing.T) {
	out := SubstitutePlaceholders("do $ARGUMENTS now", "the thing")
	assert.Equal(t, "do the thing now", out)
}

func TestSubstitutePlaceholders_PositionalArgs(t *testing.T) {
	out := SubstitutePlaceholders("first=$1 second=$2 missing=$3", "alpha beta")
	assert.Equal(t, "first=alpha second=beta missing=", out)
}

func TestSubstitutePlaceholders_EnvVar(t *testing.T) {
	t.Setenv("SKILLRUNNER_TEST_VAR", "envval")
	out := SubstitutePlaceholders("value=${SKILLRUNNER_TEST_VAR}", "")
	assert.Equal(t, "value=envval", out)
}

func TestSubstitutePlaceholders_MissingEnvVarIsEmpty(t *testing.T) {
	os.Unsetenv("SKILLRUNNER_TEST_MISSING_VAR")
	out := SubstitutePlaceholders("value=${SKILLRUNNER_TEST_MISSING_VAR}", "")
	assert.Equal(t, "value=", out)
}

func TestSubstitutePlaceholders_ShellCommand(t *testing.T) {
	out := SubstitutePlaceholders("result: !`echo hello`", "")
	assert.Equal(t, "result: hello", out)
}

func TestSubstitutePlaceholders_ShellCommandFailureYieldsErrorMarker(t *testing.T) {
	out := SubstitutePlaceholders("result: !`exit 1`", "")
	assert.Contains(t, out, "[ERROR")
}

func TestSubstitutePlaceholders_CapsAtEightShellCommands(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteString("!`echo x` ")
	}
	out := SubstitutePlaceholders(b.String(), "")
	assert.Contains(t, out, "exceeded maximum of 8")
}

func TestSubstitutePlaceholders_ArgumentsRoundTrip(t *testing.T) {
	for _, arg := range []string{"", "simple", "multi word arg", "with $pecial ch@rs"} {
		out := SubstitutePlaceholders("$ARGUMENTS", arg)
		assert.Equal(t, arg, out)
	}
}
