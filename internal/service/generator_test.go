package service

import (
	"testing"
)

func TestParseCVPatch(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
		check   func(t *testing.T, summary string, skills, highlights int, experiences int)
	}{
		{
			name: "plain JSON",
			content: `{"summary":"Tailored.","focus_summary":"Strong fit.","skills":["Go","SQL"],` +
				`"highlights":["Shipped X"],"experiences":[{"index":0,"description":"Did things."}]}`,
			valid: true,
			check: func(t *testing.T, summary string, skills, highlights, experiences int) {
				if summary != "Tailored." || skills != 2 || highlights != 1 || experiences != 1 {
					t.Errorf("unexpected parse: %q %d %d %d", summary, skills, highlights, experiences)
				}
			},
		},
		{
			name:    "fenced JSON",
			content: "Here is the patch:\n```json\n{\"summary\":\"Fenced.\"}\n```",
			valid:   true,
			check: func(t *testing.T, summary string, skills, highlights, experiences int) {
				if summary != "Fenced." {
					t.Errorf("expected fenced JSON to parse, got summary %q", summary)
				}
			},
		},
		{
			name:    "malformed body",
			content: "I could not produce JSON, sorry.",
			valid:   false,
		},
		{
			name:    "truncated JSON",
			content: `{"summary":"cut off","skills":["Go"`,
			valid:   false,
		},
		{
			name:    "empty response",
			content: "",
			valid:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, ok := parseCVPatch(tt.content)
			if ok != tt.valid {
				t.Fatalf("expected valid=%v, got %v", tt.valid, ok)
			}
			if !tt.valid {
				if !patch.IsZero() {
					t.Errorf("malformed output must yield the zero patch, got %+v", patch)
				}
				return
			}
			if tt.check != nil {
				tt.check(t, patch.Summary, len(patch.Skills), len(patch.Highlights), len(patch.Experiences))
			}
		})
	}
}

func TestParseCVPatchFocusSummary(t *testing.T) {
	patch, ok := parseCVPatch(`{"summary":"s","focus_summary":null}`)
	if !ok {
		t.Fatal("expected valid JSON")
	}
	if patch.FocusSummary != nil {
		t.Errorf("null focus_summary must stay nil, got %q", *patch.FocusSummary)
	}

	patch, _ = parseCVPatch(`{"focus_summary":"Great fit."}`)
	if patch.FocusSummary == nil || *patch.FocusSummary != "Great fit." {
		t.Errorf("string focus_summary should be carried, got %v", patch.FocusSummary)
	}
}

func TestParseCVPatchDropsEntriesWithoutIndex(t *testing.T) {
	patch, ok := parseCVPatch(`{"experiences":[{"description":"no index"},{"index":1,"description":"ok"}]}`)
	if !ok {
		t.Fatal("expected valid JSON")
	}
	if len(patch.Experiences) != 1 || patch.Experiences[0].Index != 1 {
		t.Errorf("entries without an index are dropped, got %+v", patch.Experiences)
	}
}

func TestParseAnalysis(t *testing.T) {
	content := "```json\n" + `{
		"title": "Backend Engineer",
		"company": "Acme",
		"summary": "Build services.",
		"requirements": ["Go", ""],
		"keywords": ["Go", "PostgreSQL"]
	}` + "\n```"

	result, err := parseAnalysis(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Title != "Backend Engineer" || result.Company != "Acme" {
		t.Errorf("unexpected parse: %+v", result)
	}
	if len(result.Requirements) != 1 {
		t.Errorf("empty array entries are dropped, got %v", result.Requirements)
	}
	if len(result.Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %v", result.Keywords)
	}
}

func TestParseAnalysisRejectsUnusableOutput(t *testing.T) {
	for _, content := range []string{
		"not json at all",
		"{}",
		`{"location": "Berlin"}`,
	} {
		if _, err := parseAnalysis(content); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"prose before {\"a\":1} prose after", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no braces here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestArtifactKeyIsDeterministic(t *testing.T) {
	a := ArtifactKey("u1", "https://jobs.example/1", "cover_letter.md")
	b := ArtifactKey("u1", "https://jobs.example/1", "cover_letter.md")
	if a != b {
		t.Errorf("same inputs must produce the same key: %q vs %q", a, b)
	}
	c := ArtifactKey("u1", "https://jobs.example/2", "cover_letter.md")
	if a == c {
		t.Error("different URLs must produce different keys")
	}
}
