package tailor

import (
	"context"
	"errors"
	"testing"

	"github.com/wenqi/jobtailor/internal/domain"
)

type stubScorer struct {
	skills    int
	text      int
	skillsErr error
	textErr   error
}

func (s *stubScorer) ScoreSkills(ctx context.Context, candidate, target []string) (int, error) {
	return s.skills, s.skillsErr
}

func (s *stubScorer) ScoreText(ctx context.Context, a, b string) (int, error) {
	return s.text, s.textErr
}

func jobTarget() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Summary:      "Build and run Go backend services.",
		Requirements: []string{"Go experience", "PostgreSQL"},
		Keywords:     []string{"Go", "PostgreSQL", "Docker", "Kubernetes"},
	}
}

func TestCompositeWeights(t *testing.T) {
	tests := []struct {
		name   string
		scorer *stubScorer
		want   domain.MatchBreakdown
	}{
		{"skills only", &stubScorer{skills: 100, text: 0}, domain.MatchBreakdown{Skills: 100, Composite: 40}},
		{"text only", &stubScorer{skills: 0, text: 100}, domain.MatchBreakdown{Summary: 100, Experience: 100, Composite: 60}},
		{"perfect", &stubScorer{skills: 100, text: 100}, domain.MatchBreakdown{Skills: 100, Summary: 100, Experience: 100, Composite: 100}},
		{"nothing", &stubScorer{}, domain.MatchBreakdown{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(tt.scorer, nil, nil)
			got := r.score(context.Background(), []string{"Go"}, "summary", "experience", jobTarget())
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestScoreClampsSemanticResults(t *testing.T) {
	r := NewReconciler(&stubScorer{skills: 150, text: -20}, nil, nil)
	got := r.score(context.Background(), []string{"Go"}, "a", "b", jobTarget())
	if got.Skills != 100 {
		t.Errorf("skills sub-score must clamp to 100, got %d", got.Skills)
	}
	if got.Summary != 0 || got.Experience != 0 {
		t.Errorf("text sub-scores must clamp to 0, got %d and %d", got.Summary, got.Experience)
	}
}

func TestScoreFallsBackWhenScorerFails(t *testing.T) {
	scorer := &stubScorer{
		skillsErr: errors.New("embedding api down"),
		textErr:   errors.New("embedding api down"),
	}
	r := NewReconciler(scorer, nil, nil)

	// Go and PostgreSQL cover 2 of the 4 target keywords.
	got := r.score(context.Background(), []string{"Go", "PostgreSQL"},
		"Build and run Go backend services.", "irrelevant words entirely", jobTarget())
	if got.Skills != 50 {
		t.Errorf("expected set-intersection fallback of 50, got %d", got.Skills)
	}
	if got.Summary != 100 {
		t.Errorf("identical summary should score 100 via token overlap, got %d", got.Summary)
	}
	if got.Composite < 0 || got.Composite > 100 {
		t.Errorf("composite out of bounds: %d", got.Composite)
	}
}

func TestFallbackSkillScore(t *testing.T) {
	tests := []struct {
		name      string
		candidate []string
		target    []string
		want      int
	}{
		{"full coverage", []string{"Go", "SQL"}, []string{"go", "sql"}, 100},
		{"half coverage", []string{"Go"}, []string{"Go", "Rust"}, 50},
		{"no coverage", []string{"Go"}, []string{"Rust"}, 0},
		{"empty target", []string{"Go"}, nil, 0},
		{"empty candidate", nil, []string{"Go"}, 0},
		{"duplicate targets count once", []string{"Go"}, []string{"Go", "go", " GO "}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackSkillScore(tt.candidate, tt.target); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFallbackTextScore(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "go backend services", "go backend services", 100},
		{"disjoint", "go backend", "python frontend", 0},
		{"partial overlap", "go backend services", "go frontend apps", 20},
		{"empty side", "", "go backend", 0},
		{"case and punctuation ignored", "Go, backend!", "go BACKEND", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackTextScore(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	r := NewReconciler(nil, nil, nil)
	inputs := []struct {
		skills  []string
		summary string
		exp     string
	}{
		{nil, "", ""},
		{[]string{"Go"}, "short", "text"},
		{[]string{"Go", "SQL", "Docker"}, "Build and run Go backend services.", "Built Go services with PostgreSQL."},
	}
	for _, in := range inputs {
		got := r.score(context.Background(), in.skills, in.summary, in.exp, jobTarget())
		for name, v := range map[string]int{
			"skills": got.Skills, "summary": got.Summary,
			"experience": got.Experience, "composite": got.Composite,
		} {
			if v < 0 || v > 100 {
				t.Errorf("%s sub-score out of bounds: %d", name, v)
			}
		}
	}
}
