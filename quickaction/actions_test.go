package quickaction

import "testing"

func TestFindExact(t *testing.T) {
	a, ok := Find("Reply to Letter")
	if !ok {
		t.Fatal("Find() missed a registered action")
	}
	if !a.RequiresExactlyOne {
		t.Error("Reply to Letter must require exactly one document")
	}

	if _, ok := Find("Redact Everything"); ok {
		t.Error("Find() matched an unregistered name")
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	if _, ok := Find("extract dates"); !ok {
		t.Error("Find() should be case-insensitive")
	}
}

func TestResolveFuzzy(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Extract Dates", "Extract Dates"},
		{"extract", "Extract Dates"},
		{"summar", "Summarize Document"},
		{"reply", "Reply to Letter"},
		{"court", "Prepare for Court"},
	}
	for _, tt := range tests {
		a, ok := Resolve(tt.query)
		if !ok {
			t.Errorf("Resolve(%q) found nothing", tt.query)
			continue
		}
		if a.Name != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.query, a.Name, tt.want)
		}
	}

	if _, ok := Resolve("zzzz"); ok {
		t.Error("Resolve() matched gibberish")
	}
}

func TestFormatPayload(t *testing.T) {
	if got := FormatPayload("Extract Dates", map[string]any{"result": "Found 3 dates"}); got != "Found 3 dates" {
		t.Errorf("FormatPayload = %q", got)
	}

	got := FormatPayload("Extract Dates", map[string]any{"dates": []any{"2026-01-15"}})
	if got == "" {
		t.Error("FormatPayload returned empty content for structured payload")
	}
}
