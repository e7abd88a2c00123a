package execkit

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how output is truncated.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// MaxOutputChars is the hard cap on ExecutionResult.output: a tool
// whose output exceeds this is truncated with a marker, not failed.
const MaxOutputChars = 100000

// DefaultToolCharLimits gives a handful of built-in tools tighter
// budgets than the global cap; anything not listed falls back to
// MaxOutputChars.
var DefaultToolCharLimits = map[string]int{
	"read":           50000,
	"execute":        MaxOutputChars,
	"execute_script": MaxOutputChars,
	"grep":           20000,
	"glob":           20000,
	"write":          1000,
}

var DefaultTruncationModes = map[string]TruncationMode{
	"read":           TruncateHeadTail,
	"execute":        TruncateHeadTail,
	"execute_script": TruncateHeadTail,
	"grep":           TruncateTail,
	"glob":           TruncateTail,
	"write":          TruncateTail,
}

// DefaultToolLineLimits caps line count for chatty tools after
// character truncation has already run.
var DefaultToolLineLimits = map[string]int{
	"execute": 500,
	"grep":    200,
	"glob":    500,
}

// TruncateOutput applies character-based truncation with a warning
// marker describing how many characters were dropped.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: output truncated; first %d characters were removed]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // TruncateHeadTail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: output truncated; %d characters were removed from the middle]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateToolOutput runs the character-then-line truncation pipeline
// for a named tool, using per-tool overrides where given and the
// package defaults (capped at MaxOutputChars) otherwise.
func TruncateToolOutput(output string, toolName string, charLimits map[string]int, lineLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = DefaultToolCharLimits[toolName]
		if !ok {
			maxChars = MaxOutputChars
		}
	}
	if maxChars > MaxOutputChars {
		maxChars = MaxOutputChars
	}

	mode, ok := DefaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, maxChars, mode)

	maxLines := 0
	if lineLimits != nil {
		maxLines = lineLimits[toolName]
	}
	if maxLines == 0 {
		maxLines = DefaultToolLineLimits[toolName]
	}
	if maxLines > 0 {
		result = TruncateLines(result, maxLines)
	}

	return result
}
