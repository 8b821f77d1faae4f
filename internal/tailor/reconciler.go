package tailor

import (
	"context"
	"strings"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
)

const (
	// defaultSummary is the synthetic summary used when both the patch and
	// the original profile leave it empty. The merged summary is never empty.
	defaultSummary = "Professional with relevant experience and skills."

	// placeholderSkill keeps the skills list non-empty when filtering and
	// the original profile both yield nothing.
	placeholderSkill = "Professional skills"

	// highlightMaxLen caps synthesized highlight text before the ellipsis.
	highlightMaxLen = 150

	// maxSynthesizedHighlights bounds how many experiences seed highlights.
	maxSynthesizedHighlights = 5
)

// ExperienceRephraser issues the targeted retry for experience indices the
// patch left uncovered: rephrase only the named descriptions, never invent
// new facts.
type ExperienceRephraser interface {
	RephraseExperiences(ctx context.Context, experiences []domain.Experience, indices []int) ([]domain.ExperiencePatch, error)
}

// Reconciler merges an AI-produced CVPatch onto the source-of-truth profile,
// producing a validated, never-empty result plus before/after match scores.
// Both scorer and rephraser are optional: without a scorer every sub-score
// uses the deterministic fallback, without a rephraser back-filled
// experience descriptions stand as-is.
type Reconciler struct {
	scorer    SemanticScorer
	rephraser ExperienceRephraser
	log       *logger.Logger
}

// Result is the reconciliation outcome.
type Result struct {
	CV          domain.TailoredCV     `json:"cv"`
	MatchBefore domain.MatchBreakdown `json:"match_before"`
	MatchAfter  domain.MatchBreakdown `json:"match_after"`
}

// NewReconciler creates a Reconciler.
func NewReconciler(scorer SemanticScorer, rephraser ExperienceRephraser, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Reconciler{scorer: scorer, rephraser: rephraser, log: log}
}

// Reconcile applies the per-field fallback priority (patch value if valid,
// else original value, else a non-fabricated synthetic default) and scores
// the profile against the posting before and after tailoring.
func (r *Reconciler) Reconcile(ctx context.Context, original *domain.UserProfile, target *domain.AnalysisResult, patch domain.CVPatch) *Result {
	if original == nil {
		original = &domain.UserProfile{}
	}

	cv := domain.TailoredCV{
		Summary:      mergeSummary(original, patch),
		FocusSummary: mergeFocusSummary(patch),
		Skills:       mergeSkills(original, patch),
		Highlights:   mergeHighlights(original, patch),
		Experiences:  r.reconcileExperiences(ctx, original, patch),
	}

	res := &Result{CV: cv}
	if target != nil {
		res.MatchBefore = r.score(ctx, original.Skills, original.Summary, joinExperienceText(original), target)
		res.MatchAfter = r.score(ctx, cv.Skills, cv.Summary, strings.Join(cv.Experiences, " "), target)
	}
	return res
}

func mergeSummary(original *domain.UserProfile, patch domain.CVPatch) string {
	if s := strings.TrimSpace(patch.Summary); s != "" {
		return s
	}
	if s := strings.TrimSpace(original.Summary); s != "" {
		return s
	}
	return defaultSummary
}

func mergeFocusSummary(patch domain.CVPatch) *string {
	if patch.FocusSummary == nil {
		return nil
	}
	s := strings.TrimSpace(*patch.FocusSummary)
	if s == "" {
		return nil
	}
	return &s
}

// mergeSkills filters patch skills through an allow-list built from the
// original skill list, project technologies, and any term already present
// in the original free text. The model cannot introduce a skill the profile
// never mentions.
func mergeSkills(original *domain.UserProfile, patch domain.CVPatch) []string {
	allowed := make(map[string]struct{}, len(original.Skills))
	for _, s := range original.Skills {
		allowed[normalizeTerm(s)] = struct{}{}
	}
	for _, p := range original.Projects {
		for _, tech := range p.Technologies {
			allowed[normalizeTerm(tech)] = struct{}{}
		}
	}
	freeText := strings.ToLower(freeTextOf(original))

	var filtered []string
	seen := make(map[string]struct{})
	for _, s := range patch.Skills {
		term := strings.TrimSpace(s)
		if term == "" {
			continue
		}
		norm := normalizeTerm(term)
		if _, dup := seen[norm]; dup {
			continue
		}
		_, listed := allowed[norm]
		if !listed && !strings.Contains(freeText, norm) {
			continue
		}
		seen[norm] = struct{}{}
		filtered = append(filtered, term)
	}

	if len(filtered) > 0 {
		return filtered
	}
	if len(original.Skills) > 0 {
		out := make([]string, len(original.Skills))
		copy(out, original.Skills)
		return out
	}
	return []string{placeholderSkill}
}

// mergeHighlights keeps the model's non-empty highlights; when the patch has
// none, highlights are synthesized from the first few original experiences
// with non-empty descriptions, tagged with their source index.
func mergeHighlights(original *domain.UserProfile, patch domain.CVPatch) []domain.Highlight {
	var out []domain.Highlight
	for _, h := range patch.Highlights {
		text := strings.TrimSpace(h)
		if text == "" {
			continue
		}
		out = append(out, domain.Highlight{Text: text, SourceIndex: -1})
	}
	if len(out) > 0 {
		return out
	}

	for i, exp := range original.Experiences {
		if len(out) >= maxSynthesizedHighlights {
			break
		}
		desc := strings.TrimSpace(exp.Description)
		if desc == "" {
			continue
		}
		out = append(out, domain.Highlight{
			Text:        truncateWithEllipsis(desc, highlightMaxLen),
			SourceIndex: i,
		})
	}
	return out
}

// reconcileExperiences guarantees one non-empty description per original
// experience. Valid patch entries win; every uncovered index is back-filled
// from the original, then one targeted rephrase retry runs for the missing
// indices. The retry's output is adopted only if it fully covers every
// previously-missing index.
func (r *Reconciler) reconcileExperiences(ctx context.Context, original *domain.UserProfile, patch domain.CVPatch) []string {
	n := len(original.Experiences)
	if n == 0 {
		return nil
	}

	byIndex := make(map[int]string, len(patch.Experiences))
	for _, ep := range patch.Experiences {
		if ep.Index < 0 || ep.Index >= n {
			continue
		}
		desc := strings.TrimSpace(ep.Description)
		if desc == "" {
			continue
		}
		if _, exists := byIndex[ep.Index]; exists {
			continue
		}
		byIndex[ep.Index] = desc
	}

	out := make([]string, n)
	var missing []int
	for i := 0; i < n; i++ {
		if desc, ok := byIndex[i]; ok {
			out[i] = desc
			continue
		}
		missing = append(missing, i)
		out[i] = fallbackExperienceText(original.Experiences[i])
	}

	if len(missing) == 0 || r.rephraser == nil {
		return out
	}

	retry, err := r.rephraser.RephraseExperiences(ctx, original.Experiences, missing)
	if err != nil {
		r.log.WithError(err).Warn("Experience rephrase retry failed, keeping back-filled descriptions")
		return out
	}

	wanted := make(map[int]struct{}, len(missing))
	for _, i := range missing {
		wanted[i] = struct{}{}
	}
	cover := make(map[int]string, len(missing))
	for _, ep := range retry {
		if _, ok := wanted[ep.Index]; !ok {
			continue
		}
		desc := strings.TrimSpace(ep.Description)
		if desc == "" {
			continue
		}
		cover[ep.Index] = desc
	}
	if len(cover) < len(missing) {
		r.log.WithFields(logger.Fields{
			"missing": len(missing),
			"covered": len(cover),
		}).Warn("Rephrase retry incomplete, keeping back-filled descriptions")
		return out
	}
	for i, desc := range cover {
		out[i] = desc
	}
	return out
}

func fallbackExperienceText(exp domain.Experience) string {
	if desc := strings.TrimSpace(exp.Description); desc != "" {
		return desc
	}
	position := strings.TrimSpace(exp.Position)
	company := strings.TrimSpace(exp.Company)
	switch {
	case position != "" && company != "":
		return position + " at " + company
	case position != "":
		return position
	case company != "":
		return "Role at " + company
	default:
		return "Professional experience"
	}
}

func freeTextOf(p *domain.UserProfile) string {
	var b strings.Builder
	b.WriteString(p.Summary)
	for _, exp := range p.Experiences {
		b.WriteString(" ")
		b.WriteString(exp.Description)
	}
	for _, proj := range p.Projects {
		b.WriteString(" ")
		b.WriteString(proj.Description)
	}
	return b.String()
}

func joinExperienceText(p *domain.UserProfile) string {
	parts := make([]string, 0, len(p.Experiences))
	for _, exp := range p.Experiences {
		if exp.Description != "" {
			parts = append(parts, exp.Description)
		}
	}
	return strings.Join(parts, " ")
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truncateWithEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
