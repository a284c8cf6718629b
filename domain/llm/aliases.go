package llm

// AliasTable maps short model names to their canonical "provider:model"
// identifiers. Process-wide, read-only, built once at startup.
type AliasTable map[string]string

// Resolve returns the canonical identifier for modelID. An identifier
// that already carries a provider prefix, or that has no published
// alias, passes through unchanged.
func (t AliasTable) Resolve(modelID string) string {
	if canonical, ok := t[modelID]; ok {
		return canonical
	}
	return modelID
}

// DefaultAliases publishes the short names accepted in agent configs.
func DefaultAliases() AliasTable {
	return AliasTable{
		"gpt-4o":      "openai:gpt-4o",
		"gpt-4o-mini": "openai:gpt-4o-mini",
		"sonnet":      "anthropic:claude-3-5-sonnet",
		"haiku":       "anthropic:claude-3-5-haiku",
		"gemini-pro":  "google:gemini-1.5-pro",
		"flash":       "google:gemini-1.5-flash",
		"deepseek":    "deepseek:deepseek-chat",
		"random":      "random_local:baseline",
	}
}
