package types

import "github.com/go-playground/validator/v10"

// RefinedExperience is an experience tailored and scored against a specific
// job description. It is immutable once validated.
type RefinedExperience struct {
	OriginalExperienceID string   `json:"original_experience_id" validate:"required"`
	Company              string   `json:"company" validate:"required"`
	Role                 string   `json:"role,omitempty"`
	Accomplishments      []string `json:"accomplishments" validate:"required,min=1,dive,min=10"`
	Skills               []string `json:"skills,omitempty"`
	ToolsTechnologies    []string `json:"tools_technologies,omitempty"`
	RelevanceScore       float64  `json:"relevance_score" validate:"gte=0,lte=1"`
	ConfidenceScore      float64  `json:"confidence_score" validate:"gte=0,lte=1"`
	KeywordsMatched      []string `json:"keywords_matched,omitempty"`
	RefinementNotes      string   `json:"refinement_notes,omitempty"`
}

// Validate validates the RefinedExperience using the validator.
func (r *RefinedExperience) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
