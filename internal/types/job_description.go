// Package types provides type definitions for structured data used throughout the experience-matcher system.
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// JobDescription is the structured extraction of a job posting. It is built
// once per matching run and treated as read-only afterwards.
type JobDescription struct {
	URL               string   `json:"url,omitempty"`
	Title             string   `json:"title" validate:"required,max=1000"`
	Company           string   `json:"company" validate:"required,max=1000"`
	FullText          string   `json:"full_text" validate:"required,min=50,max=50000"`
	Summary           string   `json:"summary" validate:"required,max=1000"`
	Requirements      []string `json:"requirements,omitempty"`
	Responsibilities  []string `json:"responsibilities,omitempty"`
	SkillsMentioned   []string `json:"skills_mentioned,omitempty"`
	ExtractedKeywords []string `json:"extracted_keywords,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	InferredIndustry  string   `json:"inferred_industry,omitempty"`
}

// Normalize deduplicates all list fields case-insensitively, keeping the
// first occurrence and its original casing.
func (j *JobDescription) Normalize() {
	j.Requirements = DedupeFold(j.Requirements)
	j.Responsibilities = DedupeFold(j.Responsibilities)
	j.SkillsMentioned = DedupeFold(j.SkillsMentioned)
	j.ExtractedKeywords = DedupeFold(j.ExtractedKeywords)
	j.Categories = DedupeFold(j.Categories)
}

// Validate normalizes the list fields and validates the JobDescription using the validator.
func (j *JobDescription) Validate() error {
	j.Normalize()
	validate := validator.New()
	return validate.Struct(j)
}

// TopSkills returns the first n mentioned skills, or all of them if fewer exist.
func (j *JobDescription) TopSkills(n int) []string {
	if n > len(j.SkillsMentioned) {
		n = len(j.SkillsMentioned)
	}
	return j.SkillsMentioned[:n]
}

// DedupeFold removes case-insensitive duplicates from a string slice,
// preserving order and dropping blank entries.
func DedupeFold(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}
