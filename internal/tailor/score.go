package tailor

import (
	"context"
	"math"
	"strings"

	"github.com/wenqi/jobtailor/internal/domain"
)

// Sub-score weights for the composite match score.
const (
	weightSkills     = 0.4
	weightSummary    = 0.3
	weightExperience = 0.3
)

// SemanticScorer computes similarity sub-scores via an external semantic
// call. Any error falls back to the deterministic in-process scoring.
type SemanticScorer interface {
	// ScoreSkills rates how well candidate skills cover the target terms, 0-100.
	ScoreSkills(ctx context.Context, candidate, target []string) (int, error)
	// ScoreText rates the similarity of two free-text blocks, 0-100.
	ScoreText(ctx context.Context, a, b string) (int, error)
}

// score computes the weighted composite fit of one profile view against the
// posting: skills coverage 40%, summary similarity 30%, experience-text
// similarity 30%. Every sub-score and the composite are clamped to [0,100].
func (r *Reconciler) score(ctx context.Context, skills []string, summary, experience string, target *domain.AnalysisResult) domain.MatchBreakdown {
	targetSummary := target.Summary
	if strings.TrimSpace(targetSummary) == "" {
		targetSummary = target.TargetText()
	}

	b := domain.MatchBreakdown{
		Skills:     r.skillScore(ctx, skills, target.Keywords),
		Summary:    r.textScore(ctx, summary, targetSummary),
		Experience: r.textScore(ctx, experience, target.TargetText()),
	}
	composite := weightSkills*float64(b.Skills) +
		weightSummary*float64(b.Summary) +
		weightExperience*float64(b.Experience)
	b.Composite = clampScore(int(math.Round(composite)))
	return b
}

func (r *Reconciler) skillScore(ctx context.Context, candidate, target []string) int {
	if r.scorer != nil {
		if v, err := r.scorer.ScoreSkills(ctx, candidate, target); err == nil {
			return clampScore(v)
		} else {
			r.log.WithError(err).Debug("Semantic skill scoring failed, using set intersection")
		}
	}
	return fallbackSkillScore(candidate, target)
}

func (r *Reconciler) textScore(ctx context.Context, a, b string) int {
	if r.scorer != nil {
		if v, err := r.scorer.ScoreText(ctx, a, b); err == nil {
			return clampScore(v)
		} else {
			r.log.WithError(err).Debug("Semantic text scoring failed, using token overlap")
		}
	}
	return fallbackTextScore(a, b)
}

// fallbackSkillScore is the deterministic skills sub-score: the share of
// target terms covered by the candidate set, case-insensitive.
func fallbackSkillScore(candidate, target []string) int {
	targetSet := make(map[string]struct{}, len(target))
	for _, t := range target {
		if norm := normalizeTerm(t); norm != "" {
			targetSet[norm] = struct{}{}
		}
	}
	if len(targetSet) == 0 {
		return 0
	}
	candidateSet := make(map[string]struct{}, len(candidate))
	for _, c := range candidate {
		if norm := normalizeTerm(c); norm != "" {
			candidateSet[norm] = struct{}{}
		}
	}
	matched := 0
	for t := range targetSet {
		if _, ok := candidateSet[t]; ok {
			matched++
		}
	}
	return clampScore(int(math.Round(100 * float64(matched) / float64(len(targetSet)))))
}

// fallbackTextScore is the deterministic text sub-score: token overlap
// ratio (intersection over union) of the two texts.
func fallbackTextScore(a, b string) int {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return clampScore(int(math.Round(100 * float64(intersection) / float64(union))))
}

func tokenize(s string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if len(t) > 1 {
			set[t] = struct{}{}
		}
	}
	return set
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
