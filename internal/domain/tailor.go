package domain

// CVPatch is the partial update proposal produced by the tailoring model.
// It is parsed into this strict shape at the service boundary; malformed
// model output becomes the zero patch and the full fallback chain applies.
type CVPatch struct {
	Summary      string            `json:"summary"`
	FocusSummary *string           `json:"focus_summary"`
	Skills       []string          `json:"skills"`
	Highlights   []string          `json:"highlights"`
	Experiences  []ExperiencePatch `json:"experiences"`
}

// ExperiencePatch rewrites one experience description, keyed to the
// positional index of the original experience list. Out-of-range or
// duplicate indices are discarded during reconciliation.
type ExperiencePatch struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

// IsZero reports whether the patch carries no usable content.
func (p CVPatch) IsZero() bool {
	return p.Summary == "" && p.FocusSummary == nil &&
		len(p.Skills) == 0 && len(p.Highlights) == 0 && len(p.Experiences) == 0
}

// Highlight is one tailored CV highlight. SourceIndex points at the original
// experience a synthesized highlight was derived from, -1 for model-provided
// highlights.
type Highlight struct {
	Text        string `json:"text"`
	SourceIndex int    `json:"source_index"`
}

// TailoredCV is the validated merge of a CVPatch onto a UserProfile.
// Summary and Skills are never empty, Skills never contain a term absent
// from the original profile, and Experiences has exactly one non-empty
// description per original experience.
type TailoredCV struct {
	Summary      string      `json:"summary"`
	FocusSummary *string     `json:"focus_summary,omitempty"`
	Skills       []string    `json:"skills"`
	Highlights   []Highlight `json:"highlights"`
	Experiences  []string    `json:"experiences"`
}

// MatchBreakdown is the composite profile-to-posting fit score with its
// weighted sub-scores, each in [0,100].
type MatchBreakdown struct {
	Skills     int `json:"skills"`
	Summary    int `json:"summary"`
	Experience int `json:"experience"`
	Composite  int `json:"composite"`
}
