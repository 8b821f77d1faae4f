package pipeline

import (
	"strings"

	"github.com/wenqi/jobtailor/internal/domain"
)

// BuildFallbackText reconstructs a plain-text job description from the
// structured submission fields. It feeds the single analysis retry when the
// primary input fails. Fields are appended only when non-empty; the
// about-the-job body wins over the generic description.
func BuildFallbackText(sub domain.JobSubmission) string {
	var b strings.Builder
	appendField(&b, "Job Title", sub.Title)
	appendField(&b, "Company", sub.Company)
	appendField(&b, "Location", sub.Location)
	appendField(&b, "Employment Type", sub.EmploymentType)
	appendField(&b, "Experience Level", sub.ExperienceLevel)

	body := strings.TrimSpace(sub.AboutJob)
	if body == "" {
		body = strings.TrimSpace(sub.Description)
	}
	if body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(body)
	}
	return strings.TrimSpace(b.String())
}

func appendField(b *strings.Builder, label, value string) {
	v := strings.TrimSpace(value)
	if v == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(v)
	b.WriteString("\n")
}
