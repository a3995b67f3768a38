package provider

import "strings"

// modelPrice holds per-million-token prices in USD.
type modelPrice struct {
	Prompt     float64
	Completion float64
}

// priceTable maps model name prefixes to prices. Longest prefix wins so
// "gpt-4o-mini" is matched before "gpt-4o".
var priceTable = map[string]modelPrice{
	"gpt-4o-mini":       {Prompt: 0.15, Completion: 0.60},
	"gpt-4o":            {Prompt: 2.50, Completion: 10.00},
	"gpt-4.1-mini":      {Prompt: 0.40, Completion: 1.60},
	"gpt-4.1":           {Prompt: 2.00, Completion: 8.00},
	"gpt-3.5-turbo":     {Prompt: 0.50, Completion: 1.50},
	"claude-3-5-haiku":  {Prompt: 0.80, Completion: 4.00},
	"claude-3-5-sonnet": {Prompt: 3.00, Completion: 15.00},
	"claude-3-opus":     {Prompt: 15.00, Completion: 75.00},
}

// defaultPrice is used for unknown models so cost accounting never reports
// zero for a call that did consume tokens.
var defaultPrice = modelPrice{Prompt: 1.00, Completion: 3.00}

// CostFor computes the monetary cost of one call from its token counts.
func CostFor(model string, promptTokens, completionTokens int) float64 {
	price := defaultPrice
	bestLen := 0
	for prefix, p := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			price = p
			bestLen = len(prefix)
		}
	}
	return (float64(promptTokens)*price.Prompt +
		float64(completionTokens)*price.Completion) / 1_000_000
}
