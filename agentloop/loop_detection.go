package agentloop

import (
	"crypto/sha256"
	"fmt"

	"github.com/attractor-labs/skillrunner/agent"
)

// toolCallSignature computes a deterministic signature for a tool call
// from its name and raw argument string.
func toolCallSignature(tc agent.ToolCall) string {
	h := sha256.Sum256([]byte(tc.Arguments))
	return fmt.Sprintf("%s:%x", tc.Name, h[:8])
}

// extractToolCallSignatures walks history backwards collecting up to
// count tool-call signatures, returned in chronological order.
func extractToolCallSignatures(history []agent.Message, count int) []string {
	var sigs []string
	for i := len(history) - 1; i >= 0 && len(sigs) < count; i-- {
		msg := history[i]
		if msg.Role != agent.RoleAssistant {
			continue
		}
		for j := len(msg.ToolCalls) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, toolCallSignature(msg.ToolCalls[j]))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectToolLoop reports whether the last windowSize tool calls in
// history follow a repeating pattern of length 1, 2, or 3.
func DetectToolLoop(history []agent.Message, windowSize int) bool {
	if windowSize <= 0 {
		return false
	}
	sigs := extractToolCallSignatures(history, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3 && patternLen < windowSize; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
			if !allMatch {
				break
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}
