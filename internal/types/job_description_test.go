package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob() *JobDescription {
	return &JobDescription{
		URL:      "https://example.com/jobs/123",
		Title:    "Senior Backend Engineer",
		Company:  "Acme Corp",
		FullText: strings.Repeat("We are looking for a backend engineer. ", 5),
		Summary:  "Backend engineering role focused on distributed systems.",
		SkillsMentioned: []string{
			"Python", "Docker", "Kubernetes",
		},
	}
}

func TestJobDescription_Validate(t *testing.T) {
	job := validJob()
	require.NoError(t, job.Validate())
}

func TestJobDescription_Validate_ShortFullText(t *testing.T) {
	job := validJob()
	job.FullText = "too short"
	assert.Error(t, job.Validate())
}

func TestJobDescription_Validate_MissingTitle(t *testing.T) {
	job := validJob()
	job.Title = ""
	assert.Error(t, job.Validate())
}

func TestJobDescription_Normalize_DeduplicatesCaseInsensitive(t *testing.T) {
	job := validJob()
	job.SkillsMentioned = []string{"Python", "python", "  PYTHON ", "Docker", ""}
	job.Normalize()

	assert.Equal(t, []string{"Python", "Docker"}, job.SkillsMentioned)
}

func TestJobDescription_Normalize_PreservesOrder(t *testing.T) {
	job := validJob()
	job.ExtractedKeywords = []string{"grpc", "REST", "grpc", "graphql", "rest"}
	job.Normalize()

	assert.Equal(t, []string{"grpc", "REST", "graphql"}, job.ExtractedKeywords)
}

func TestJobDescription_TopSkills(t *testing.T) {
	job := validJob()
	assert.Equal(t, []string{"Python", "Docker"}, job.TopSkills(2))
	assert.Equal(t, []string{"Python", "Docker", "Kubernetes"}, job.TopSkills(5))
	assert.Empty(t, (&JobDescription{}).TopSkills(5))
}

func TestRefinedExperience_Validate(t *testing.T) {
	refined := &RefinedExperience{
		OriginalExperienceID: "exp_001",
		Company:              "Acme Corp",
		Accomplishments:      []string{"Built a payment processing service handling 1M requests/day"},
		RelevanceScore:       0.8,
		ConfidenceScore:      0.9,
	}
	require.NoError(t, refined.Validate())
}

func TestRefinedExperience_Validate_ShortAccomplishment(t *testing.T) {
	refined := &RefinedExperience{
		OriginalExperienceID: "exp_001",
		Company:              "Acme Corp",
		Accomplishments:      []string{"short"},
		RelevanceScore:       0.8,
		ConfidenceScore:      0.9,
	}
	assert.Error(t, refined.Validate())
}

func TestRefinedExperience_Validate_ScoreOutOfRange(t *testing.T) {
	refined := &RefinedExperience{
		OriginalExperienceID: "exp_001",
		Company:              "Acme Corp",
		Accomplishments:      []string{"Built a payment processing service handling 1M requests/day"},
		RelevanceScore:       1.2,
		ConfidenceScore:      0.9,
	}
	assert.Error(t, refined.Validate())

	refined.RelevanceScore = 0.8
	refined.ConfidenceScore = -0.1
	assert.Error(t, refined.Validate())
}
