package execkit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateOutput_UnderLimitUnchanged(t *testing.T) {
	out := TruncateOutput("hello", 100, TruncateHeadTail)
	assert.Equal(t, "hello", out)
}

func TestTruncateOutput_ExactlyAtLimitUnchanged(t *testing.T) {
	body := strings.Repeat("x", MaxOutputChars)
	out := TruncateOutput(body, MaxOutputChars, TruncateHeadTail)
	assert.Equal(t, body, out)
}

func TestTruncateOutput_OverLimitCarriesMarker(t *testing.T) {
	body := strings.Repeat("x", MaxOutputChars+1)
	out := TruncateOutput(body, MaxOutputChars, TruncateHeadTail)
	assert.Contains(t, out, "[WARNING")
	assert.True(t, strings.HasPrefix(out, "x"))
	assert.True(t, strings.HasSuffix(out, "x"))
}

func TestTruncateOutput_TailMode(t *testing.T) {
	body := "0123456789"
	out := TruncateTail
	got := TruncateOutput(body, 4, out)
	require.Contains(t, got, "WARNING")
	assert.True(t, strings.HasSuffix(got, "6789"))
}

func TestTruncateLines_UnderLimitUnchanged(t *testing.T) {
	body := "a\nb\nc"
	assert.Equal(t, body, TruncateLines(body, 10))
}

func TestTruncateLines_OverLimitOmitsMiddle(t *testing.T) {
	body := strings.Join([]string{"1", "2", "3", "4", "5", "6"}, "\n")
	got := TruncateLines(body, 4)
	assert.Contains(t, got, "omitted")
	assert.True(t, strings.HasPrefix(got, "1\n2"))
	assert.True(t, strings.HasSuffix(got, "5\n6"))
}

func TestTruncateToolOutput_UnknownToolFallsBackToGlobalCap(t *testing.T) {
	body := strings.Repeat("y", MaxOutputChars+10)
	got := TruncateToolOutput(body, "some_unlisted_tool", nil, nil)
	assert.LessOrEqual(t, len(got), MaxOutputChars+300) // + marker text
	assert.Contains(t, got, "WARNING")
}

func TestTruncateToolOutput_PerToolOverrideWins(t *testing.T) {
	body := strings.Repeat("z", 100)
	got := TruncateToolOutput(body, "execute", map[string]int{"execute": 10}, nil)
	assert.Contains(t, got, "WARNING")
}

func TestComposeEnv_ExplicitWinsOverPrimaryWinsOverCaller(t *testing.T) {
	caller := []string{"FOO=caller", "PATH=/usr/bin"}
	primary := map[string]string{"FOO": "primary", "BAR": "primary"}
	explicit := map[string]string{"FOO": "explicit"}

	env := ComposeEnv(caller, primary, explicit)
	m := map[string]string{}
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		m[k] = v
	}

	assert.Equal(t, "explicit", m["FOO"])
	assert.Equal(t, "primary", m["BAR"])
	assert.Equal(t, "/usr/bin", m["PATH"])
}

func TestComposeEnv_FiltersSensitiveCallerVars(t *testing.T) {
	caller := []string{"MY_SERVICE_API_KEY=secret", "PATH=/usr/bin"}
	env := ComposeEnv(caller, nil, nil)
	for _, kv := range env {
		assert.NotContains(t, kv, "MY_SERVICE_API_KEY")
	}
}

func TestComposeEnv_DoesNotMutateCallerSlice(t *testing.T) {
	caller := []string{"PATH=/usr/bin"}
	original := append([]string(nil), caller...)
	_ = ComposeEnv(caller, map[string]string{"X": "1"}, nil)
	assert.Equal(t, original, caller)
}
