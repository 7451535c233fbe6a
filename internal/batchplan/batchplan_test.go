package batchplan

import (
	"strings"
	"testing"
)

func countWords(text string) int {
	return len(strings.Fields(text))
}

func TestPlanPreservesOrder(t *testing.T) {
	entries := []Entry{
		{Text: "one"}, {Text: "two two"}, {Text: "three three three"},
	}
	batches := Plan(entries, DefaultTokenLimit, countWords)

	var got []string
	for _, b := range batches {
		for _, e := range b.Entries {
			got = append(got, e.Text)
		}
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries reconstituted, got %d", len(entries), len(got))
	}
	for i, e := range entries {
		if got[i] != e.Text {
			t.Fatalf("order broken at %d: got %q want %q", i, got[i], e.Text)
		}
	}
}

func TestPlanItemCapEnforced(t *testing.T) {
	entries := make([]Entry, 1331)
	for i := range entries {
		entries[i] = Entry{Text: "word"} // ~1 token each, well under token cap
	}
	countOneToken := func(string) int { return 1 }

	batches := Plan(entries, DefaultTokenLimit, countOneToken)
	if len(batches) != 2 {
		t.Fatalf("expected exactly 2 batches, got %d", len(batches))
	}
	if len(batches[0].Entries) != 1000 || len(batches[1].Entries) != 331 {
		t.Fatalf("expected sizes [1000,331], got [%d,%d]", len(batches[0].Entries), len(batches[1].Entries))
	}
}

func TestPlanTokenCapEnforced(t *testing.T) {
	// token limit 1000 -> effective cap 900
	entries := []Entry{
		{Text: "a"}, {Text: "b"}, {Text: "c"},
	}
	tokensPerEntry := map[string]int{"a": 500, "b": 500, "c": 10}
	counter := func(text string) int { return tokensPerEntry[text] }

	batches := Plan(entries, 1000, counter)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches (500+500 exceeds 900 cap), got %d", len(batches))
	}
	if batches[0].TokenCount > 900 {
		t.Fatalf("batch 0 exceeds effective cap: %d", batches[0].TokenCount)
	}
}

func TestPlanSingleOversizedEntryAlone(t *testing.T) {
	entries := []Entry{{Text: "huge"}}
	counter := func(string) int { return 1_000_000 }

	batches := Plan(entries, DefaultTokenLimit, counter)
	if len(batches) != 1 || len(batches[0].Entries) != 1 {
		t.Fatalf("expected single oversized entry placed alone, got %+v", batches)
	}
}
