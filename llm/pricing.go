package llm

// Price is the USD cost per 1K prompt and completion tokens.
type Price struct {
	InPer1K  float64 `json:"in_per_1k"`
	OutPer1K float64 `json:"out_per_1k"`
}

// PriceTable maps model names to prices. Unknown models cost zero, so
// local and self-hosted models need no entry.
type PriceTable map[string]Price

// DefaultPrices covers the hosted models the service is expected to run
// against. Rates drift; override through configuration when they do.
func DefaultPrices() PriceTable {
	return PriceTable{
		"gpt-4o":        {InPer1K: 0.0025, OutPer1K: 0.01},
		"gpt-4o-mini":   {InPer1K: 0.00015, OutPer1K: 0.0006},
		"gpt-4.1":       {InPer1K: 0.002, OutPer1K: 0.008},
		"gpt-4.1-mini":  {InPer1K: 0.0004, OutPer1K: 0.0016},
		"gpt-3.5-turbo": {InPer1K: 0.0005, OutPer1K: 0.0015},
	}
}

// Cost prices one completion. Unknown models and nil tables return 0.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) float64 {
	p, ok := t[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*p.InPer1K + float64(completionTokens)/1000*p.OutPer1K
}
