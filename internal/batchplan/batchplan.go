// Package batchplan implements a batch planner: packs chunk texts into
// batches respecting both a token limit and an item cap, preserving
// input order.
package batchplan

// DefaultTokenLimit is the model token limit assumed absent a more
// specific value from the embedding provider.
const DefaultTokenLimit = 120_000

// SafetyFraction scales the token limit down to an effective cap that
// absorbs estimation drift.
const SafetyFraction = 0.9

// ItemCap is the provider's hard limit on items per batch.
const ItemCap = 1000

// Entry is one (text, metadata) chunk entry to be batched.
type Entry struct {
	Text     string
	Metadata any
}

// Batch is an ordered group of entries that together respect both caps.
type Batch struct {
	Entries    []Entry
	TokenCount int
}

// TokenCounter estimates the token count of a string. Implementations
// are provider-specific.
type TokenCounter func(text string) int

// Plan packs entries into batches. tokenLimit is the model's raw
// limit (before the safety fraction); pass DefaultTokenLimit when the
// provider does not report one. A single entry whose own token count
// exceeds the effective cap is placed alone in its own batch.
func Plan(entries []Entry, tokenLimit int, countTokens TokenCounter) []Batch {
	if tokenLimit <= 0 {
		tokenLimit = DefaultTokenLimit
	}
	effectiveCap := int(float64(tokenLimit) * SafetyFraction)

	var batches []Batch
	var current Batch

	flush := func() {
		if len(current.Entries) > 0 {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	for _, e := range entries {
		tokens := countTokens(e.Text)

		if len(current.Entries) == 0 {
			current.Entries = append(current.Entries, e)
			current.TokenCount = tokens
			continue
		}

		wouldExceedTokens := current.TokenCount+tokens > effectiveCap
		wouldExceedItems := len(current.Entries)+1 > ItemCap

		if wouldExceedTokens || wouldExceedItems {
			flush()
			current.Entries = append(current.Entries, e)
			current.TokenCount = tokens
			continue
		}

		current.Entries = append(current.Entries, e)
		current.TokenCount += tokens
	}
	flush()

	return batches
}
