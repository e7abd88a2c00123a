package skill

import "github.com/attractor-labs/skillrunner/unifiedllm"

// ModelInfo is the id, provider and context-window slice of a catalog
// entry, without the pricing, capability or display fields.
type ModelInfo struct {
	ID            string
	Provider      string
	ContextWindow int
}

// GetModelInfo resolves a model id (or alias) against the shared model
// catalog. It reports false for an unknown id rather than returning a
// zero-value guess.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	info := unifiedllm.GetModelInfo(modelID)
	if info == nil {
		return ModelInfo{}, false
	}
	return ModelInfo{ID: info.ID, Provider: info.Provider, ContextWindow: info.ContextWindow}, true
}

// DefaultContextWindow returns a model's context window, or fallback if
// the model is unknown to the catalog.
func DefaultContextWindow(modelID string, fallback int) int {
	if info, ok := GetModelInfo(modelID); ok {
		return info.ContextWindow
	}
	return fallback
}
