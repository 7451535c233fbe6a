package gitadapter

import "testing"

func TestParseLog(t *testing.T) {
	output := "aaa111|1700000000|Alice|alice@example.com|Initial commit|\n" +
		"bbb222|1700000100|Bob|bob@example.com|Follow-up|aaa111\n"

	entries := parseLog(output)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Hash != "aaa111" || entries[0].Timestamp != 1700000000 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if len(entries[1].Parents) != 1 || entries[1].Parents[0] != "aaa111" {
		t.Fatalf("expected bbb222 to have parent aaa111, got %+v", entries[1].Parents)
	}
}
