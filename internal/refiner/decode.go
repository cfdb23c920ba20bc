package refiner

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// DecodeError indicates an AI refinement response that could not be mapped
// into the recognized shape.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return "refiner: " + e.Message + ": " + e.Cause.Error()
	}
	return "refiner: " + e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// responseSchema constrains field types without requiring any field; the
// decode step folds the alternate key names afterwards.
const responseSchema = `{
  "type": "object",
  "properties": {
    "refined_accomplishments": {"type": "array", "items": {"type": "string"}},
    "tailored_accomplishments": {"type": "array", "items": {"type": "string"}},
    "key_skills": {"type": "array", "items": {"type": "string"}},
    "relevant_skills": {"type": "array", "items": {"type": "string"}},
    "technical_skills": {"type": "array", "items": {"type": "string"}},
    "soft_skills": {"type": "array", "items": {"type": "string"}},
    "tools_technologies": {"type": "array", "items": {"type": "string"}},
    "relevance_score": {"type": "number"},
    "confidence_score": {"type": "number"},
    "matching_keywords": {"type": "array", "items": {"type": "string"}},
    "extracted_keywords": {"type": "array", "items": {"type": "string"}},
    "tailoring_notes": {"type": "string"}
  }
}`

const batchSchema = `{
  "type": "object",
  "properties": {
    "refined": {"type": "array", "items": {"type": "object"}},
    "refined_experiences": {"type": "array", "items": {"type": "object"}}
  }
}`

// aiResponse is the recognized single-refinement response shape. Alternate
// key names from different prompt generations are all declared and folded
// together by the accessors below.
type aiResponse struct {
	RefinedAccomplishments  []string `json:"refined_accomplishments"`
	TailoredAccomplishments []string `json:"tailored_accomplishments"`
	KeySkills               []string `json:"key_skills"`
	RelevantSkills          []string `json:"relevant_skills"`
	TechnicalSkills         []string `json:"technical_skills"`
	SoftSkills              []string `json:"soft_skills"`
	ToolsTechnologies       []string `json:"tools_technologies"`
	RelevanceScore          float64  `json:"relevance_score"`
	ConfidenceScore         *float64 `json:"confidence_score"`
	MatchingKeywords        []string `json:"matching_keywords"`
	ExtractedKeywords       []string `json:"extracted_keywords"`
	TailoringNotes          string   `json:"tailoring_notes"`
}

func (r *aiResponse) accomplishments() []string {
	if len(r.RefinedAccomplishments) > 0 {
		return r.RefinedAccomplishments
	}
	return r.TailoredAccomplishments
}

func (r *aiResponse) skills() []string {
	var skills []string
	skills = append(skills, r.KeySkills...)
	skills = append(skills, r.RelevantSkills...)
	skills = append(skills, r.TechnicalSkills...)
	skills = append(skills, r.SoftSkills...)
	return skills
}

func (r *aiResponse) keywords() []string {
	var keywords []string
	keywords = append(keywords, r.MatchingKeywords...)
	keywords = append(keywords, r.ExtractedKeywords...)
	return keywords
}

type aiBatchItem struct {
	OriginalIndex *int `json:"original_index"`
	aiResponse
}

type aiBatchResponse struct {
	Refined            []aiBatchItem `json:"refined"`
	RefinedExperiences []aiBatchItem `json:"refined_experiences"`
}

func (r *aiBatchResponse) items() []aiBatchItem {
	if len(r.Refined) > 0 {
		return r.Refined
	}
	return r.RefinedExperiences
}

// decodeResponse validates the raw JSON against the response schema and
// unmarshals it. An unusable body yields a DecodeError.
func decodeResponse(raw string) (*aiResponse, error) {
	if err := validateAgainstSchema(responseSchema, raw); err != nil {
		return nil, err
	}

	var resp aiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &DecodeError{Message: "unmarshaling refinement response", Cause: err}
	}
	return &resp, nil
}

// decodeBatchResponse validates and unmarshals a batch refinement response.
func decodeBatchResponse(raw string) (*aiBatchResponse, error) {
	if err := validateAgainstSchema(batchSchema, raw); err != nil {
		return nil, err
	}

	var resp aiBatchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &DecodeError{Message: "unmarshaling batch response", Cause: err}
	}
	if len(resp.items()) == 0 {
		return nil, &DecodeError{Message: "batch response contains no refinements"}
	}
	return &resp, nil
}

func validateAgainstSchema(schema, raw string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return &DecodeError{Message: "response is not valid JSON", Cause: err}
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return &DecodeError{Message: "response shape not recognized: " + joinMax(messages, 3)}
	}
	return nil
}

func joinMax(items []string, max int) string {
	if len(items) > max {
		items = items[:max]
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "; "
		}
		out += item
	}
	return out
}
