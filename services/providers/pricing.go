package providers

import "github.com/samber/lo"

// ModelPrice holds per-million-token prices in USD
type ModelPrice struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultPrice applies to models missing from the price table
var DefaultPrice = ModelPrice{InputPerMTok: 1.00, OutputPerMTok: 2.00}

// DefaultPrices maps model ids to their pricing. Lookups go through
// MatchModel, so "openai/gpt-4o-mini" and "gpt-4o-mini" resolve alike.
var DefaultPrices = PriceTable{
	"gpt-4o":                 {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"gpt-4o-mini":            {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4-turbo":            {InputPerMTok: 10.00, OutputPerMTok: 30.00},
	"gpt-3.5-turbo":          {InputPerMTok: 0.50, OutputPerMTok: 1.50},
	"claude-3-5-sonnet":      {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3.5-sonnet":      {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3-5-haiku":       {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	"claude-3.5-haiku":       {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	"claude-3-haiku":         {InputPerMTok: 0.25, OutputPerMTok: 1.25},
	"claude-3-opus":          {InputPerMTok: 15.00, OutputPerMTok: 75.00},
	"gemini-flash-1.5":       {InputPerMTok: 0.075, OutputPerMTok: 0.30},
	"llama-3.1-70b-instruct": {InputPerMTok: 0.52, OutputPerMTok: 0.75},
	"mistral-7b-instruct":    {InputPerMTok: 0.055, OutputPerMTok: 0.055},
}

// PriceTable maps model ids to prices
type PriceTable map[string]ModelPrice

// Lookup returns the price for model, falling back to DefaultPrice
func (t PriceTable) Lookup(model string) ModelPrice {
	if key, ok := MatchModel(lo.Keys(t), model); ok {
		return t[key]
	}
	return DefaultPrice
}

// Cost estimates the USD cost of a completion. When the vendor reports only
// a total token count, the whole total is billed at the output rate.
func (t PriceTable) Cost(model string, promptTokens, completionTokens, totalTokens int) float64 {
	price := t.Lookup(model)
	if promptTokens > 0 || completionTokens > 0 {
		return (float64(promptTokens)*price.InputPerMTok + float64(completionTokens)*price.OutputPerMTok) / 1_000_000
	}
	return float64(totalTokens) * price.OutputPerMTok / 1_000_000
}
