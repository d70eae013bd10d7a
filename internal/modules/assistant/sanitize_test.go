package assistant

import (
	"encoding/json"
	"testing"
)

func TestSanitizeFieldsRecoversProse(t *testing.T) {
	original := "He said \"go\" now\nand left \\ quietly"
	raw := `{"chapterDrafts":[{"chapterNumber":1,"chapterText":"` + original + `","summary":"short"}],"isFinalChunk":true}`
	if json.Valid([]byte(raw)) {
		t.Fatalf("fixture should start invalid")
	}

	clean := SanitizeFields(raw, []string{"chapterText", "summary"})
	var out struct {
		ChapterDrafts []struct {
			ChapterNumber int    `json:"chapterNumber"`
			ChapterText   string `json:"chapterText"`
			Summary       string `json:"summary"`
		} `json:"chapterDrafts"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		t.Fatalf("sanitized output does not parse: %v\n%s", err, clean)
	}
	if got := out.ChapterDrafts[0].ChapterText; got != original {
		t.Fatalf("chapterText = %q want %q", got, original)
	}
	if out.ChapterDrafts[0].Summary != "short" {
		t.Fatalf("summary = %q", out.ChapterDrafts[0].Summary)
	}
}

func TestSanitizeFieldsLeavesValidJSONAlone(t *testing.T) {
	valid := `{"items":[{"chapterText":"a \"quoted\" word\nline","id":1},{"chapterText":"café 😀","id":2}]}`
	got := SanitizeFields(valid, []string{"chapterText"})

	var before, after any
	if err := json.Unmarshal([]byte(valid), &before); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if err := json.Unmarshal([]byte(got), &after); err != nil {
		t.Fatalf("sanitized: %v\n%s", err, got)
	}
	b1, _ := json.Marshal(before)
	b2, _ := json.Marshal(after)
	if string(b1) != string(b2) {
		t.Fatalf("value changed:\n%s\n%s", b1, b2)
	}
	if again := SanitizeFields(got, []string{"chapterText"}); again != got {
		t.Fatalf("not idempotent:\n%s\n%s", got, again)
	}
}

func TestSanitizeFieldsKeepsEscapedQuotesBeforeClosers(t *testing.T) {
	cases := []string{
		`{"chapterDrafts":[{"summary":"Tags: [\"hero\"]","n":1}],"isFinalChunk":true}`,
		`{"chapterDrafts":[{"summary":"ends with \"}","n":2}]}`,
		`{"summary":"tail \"\\","n":3}`,
		`{"summary":"trailing backslash \\"}`,
	}
	for _, valid := range cases {
		var want any
		if err := json.Unmarshal([]byte(valid), &want); err != nil {
			t.Fatalf("fixture %s: %v", valid, err)
		}
		got := SanitizeFields(valid, []string{"summary"})
		var have any
		if err := json.Unmarshal([]byte(got), &have); err != nil {
			t.Fatalf("sanitized %s: %v\n%s", valid, err, got)
		}
		b1, _ := json.Marshal(want)
		b2, _ := json.Marshal(have)
		if string(b1) != string(b2) {
			t.Fatalf("value changed:\n%s\n%s", b1, b2)
		}
	}
}

func TestSanitizeFieldsIgnoresOtherFields(t *testing.T) {
	raw := `{"title":"x "y" z","chapterText":"ok"}`
	if got := SanitizeFields(raw, []string{"chapterText"}); got != raw {
		t.Fatalf("unexpected rewrite: %s", got)
	}
	if got := SanitizeFields(raw, nil); got != raw {
		t.Fatalf("no fields should be a no-op")
	}
}
