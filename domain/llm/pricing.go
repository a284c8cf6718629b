package llm

// Price is the per-token USD rate for one model.
type Price struct {
	PromptPerToken     float64
	CompletionPerToken float64
}

// Cost computes cost_usd for a usage figure. Pure function over a
// read-only price table.
func (p Price) Cost(u Usage) float64 {
	return float64(u.PromptTokens)*p.PromptPerToken + float64(u.CompletionTokens)*p.CompletionPerToken
}

// PriceTable is a process-wide, read-only lookup from "provider:model" to
// its price. Built once at startup from defaults plus any
// LLM_QUEST_PRICES_JSON override (infrastructure/config loads it).
type PriceTable map[string]Price

// Lookup returns the price for a model identifier, falling back to a
// zero-cost price (so an unknown model never panics the accounting path).
func (t PriceTable) Lookup(modelID string) Price {
	if p, ok := t[modelID]; ok {
		return p
	}
	return Price{}
}

// DefaultPrices seeds the table with widely published per-token rates.
// Values are illustrative defaults, overridden by LLM_QUEST_PRICES_JSON
// in production configuration.
func DefaultPrices() PriceTable {
	return PriceTable{
		"openai:gpt-4o":               {PromptPerToken: 0.0000025, CompletionPerToken: 0.00001},
		"openai:gpt-4o-mini":          {PromptPerToken: 0.00000015, CompletionPerToken: 0.0000006},
		"anthropic:claude-3-5-sonnet": {PromptPerToken: 0.000003, CompletionPerToken: 0.000015},
		"anthropic:claude-3-5-haiku":  {PromptPerToken: 0.0000008, CompletionPerToken: 0.000004},
		"google:gemini-1.5-pro":       {PromptPerToken: 0.00000125, CompletionPerToken: 0.000005},
		"google:gemini-1.5-flash":     {PromptPerToken: 0.000000075, CompletionPerToken: 0.0000003},
		"deepseek:deepseek-chat":      {PromptPerToken: 0.00000027, CompletionPerToken: 0.0000011},
		"random_local:baseline":       {PromptPerToken: 0, CompletionPerToken: 0},
	}
}
