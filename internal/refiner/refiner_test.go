package refiner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/llm"
	"github.com/jonathan/experience-matcher/internal/types"
)

// stubClient returns canned JSON responses in order, then repeats the last.
type stubClient struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

func (s *stubClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.responses[i], nil
}

func (s *stubClient) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubClient) Close() error                  { return nil }

func fastRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
}

func sampleExperience() *types.Experience {
	return &types.Experience{
		ID:      "exp_001",
		Company: "Acme Corp",
		Role:    "Backend Engineer",
		Text:    "Built a payments pipeline in python with docker, processing 2M transactions per day",
		Skills:  []string{"python", "docker", "postgresql"},
	}
}

func sampleJob() *types.JobDescription {
	return &types.JobDescription{
		Title:             "Senior Backend Engineer",
		Company:           "Globex",
		Summary:           "Backend role.",
		FullText:          "Senior Backend Engineer role working with python, docker and kubernetes every day.",
		SkillsMentioned:   []string{"python", "docker", "kubernetes", "terraform"},
		ExtractedKeywords: []string{"payments", "pipeline"},
	}
}

const goodResponse = `{
	"refined_accomplishments": ["Engineered a python payments pipeline handling 2M daily transactions"],
	"key_skills": ["python", "docker"],
	"tools_technologies": ["docker", "postgresql"],
	"relevance_score": 0.85,
	"confidence_score": 0.9,
	"matching_keywords": ["payments"],
	"tailoring_notes": "Emphasized payments throughput"
}`

func TestRefine_Success(t *testing.T) {
	client := &stubClient{responses: []string{goodResponse}}
	r := New(client, fastRetry(), zap.NewNop())

	refined := r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementJobSpecific, "")

	require.NotNil(t, refined)
	assert.Equal(t, "exp_001", refined.OriginalExperienceID)
	assert.Equal(t, []string{"Engineered a python payments pipeline handling 2M daily transactions"}, refined.Accomplishments)
	assert.Equal(t, 0.85, refined.RelevanceScore)
	assert.Equal(t, 0.9, refined.ConfidenceScore)
	assert.Equal(t, "Emphasized payments throughput", refined.RefinementNotes)
	require.NoError(t, refined.Validate())
}

func TestRefine_CacheHitIssuesOneCall(t *testing.T) {
	client := &stubClient{responses: []string{goodResponse}}
	r := New(client, fastRetry(), zap.NewNop())

	first := r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementJobSpecific, "")
	second := r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementJobSpecific, "")

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, first, second)

	stats := r.Stats()
	assert.Equal(t, 2, stats.ExperiencesRefined)
	assert.Equal(t, 1, stats.CacheHits)
}

func TestRefine_DifferentRefinementTypeMisses(t *testing.T) {
	client := &stubClient{responses: []string{goodResponse}}
	r := New(client, fastRetry(), zap.NewNop())

	r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementGeneral, "")
	r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementSkillsFocused, "")

	assert.Equal(t, 2, client.calls)
}

func TestRefine_FallbackOnExhaustedRetries(t *testing.T) {
	failure := errors.New("model overloaded")
	client := &stubClient{responses: []string{""}, errs: []error{failure, failure}}
	r := New(client, fastRetry(), zap.NewNop())

	exp := sampleExperience()
	refined := r.Refine(context.Background(), exp, sampleJob(), RefinementJobSpecific, "")

	require.NotNil(t, refined)
	assert.Equal(t, []string{exp.Text}, refined.Accomplishments)
	assert.Equal(t, 0.5, refined.ConfidenceScore)
	assert.Equal(t, "Fallback processing", refined.RefinementNotes)
	require.NoError(t, refined.Validate())

	stats := r.Stats()
	assert.Equal(t, 1, stats.FailedRefinements)
}

func TestRefine_FallbackOnUnusableResponse(t *testing.T) {
	client := &stubClient{responses: []string{`{"relevance_score": "very high"}`}}
	r := New(client, fastRetry(), zap.NewNop())

	exp := sampleExperience()
	refined := r.Refine(context.Background(), exp, sampleJob(), RefinementJobSpecific, "")

	assert.Equal(t, []string{exp.Text}, refined.Accomplishments)
	assert.Equal(t, 0.5, refined.ConfidenceScore)
}

func TestRefine_MissingAccomplishmentsUsesOriginalText(t *testing.T) {
	client := &stubClient{responses: []string{`{"key_skills": ["python"], "confidence_score": 0.7}`}}
	r := New(client, fastRetry(), zap.NewNop())

	exp := sampleExperience()
	refined := r.Refine(context.Background(), exp, sampleJob(), RefinementJobSpecific, "")

	assert.Equal(t, []string{exp.Text}, refined.Accomplishments)
	assert.Equal(t, 0.7, refined.ConfidenceScore)
}

func TestRefine_MissingRelevanceUsesLocalScore(t *testing.T) {
	client := &stubClient{responses: []string{`{
		"refined_accomplishments": ["Engineered a python payments pipeline for Globex scale"],
		"confidence_score": 0.9
	}`}}
	r := New(client, fastRetry(), zap.NewNop())

	exp := sampleExperience()
	job := sampleJob()
	refined := r.Refine(context.Background(), exp, job, RefinementJobSpecific, "")

	assert.InDelta(t, RelevanceScore(exp, job), refined.RelevanceScore, 1e-9)
	assert.Greater(t, refined.RelevanceScore, 0.0)
}

func TestRefine_AlternateKeysFolded(t *testing.T) {
	client := &stubClient{responses: []string{`{
		"tailored_accomplishments": ["Delivered a resilient payments platform at Acme"],
		"relevant_skills": ["python"],
		"technical_skills": ["docker", "python"],
		"extracted_keywords": ["payments"],
		"relevance_score": 0.6
	}`}}
	r := New(client, fastRetry(), zap.NewNop())

	refined := r.Refine(context.Background(), sampleExperience(), sampleJob(), RefinementJobSpecific, "")

	assert.Equal(t, []string{"Delivered a resilient payments platform at Acme"}, refined.Accomplishments)
	assert.Equal(t, []string{"python", "docker"}, refined.Skills)
	assert.Equal(t, []string{"payments"}, refined.KeywordsMatched)
	assert.Equal(t, defaultConfidence, refined.ConfidenceScore)
}

func TestRefineBatch_MatchesByIndex(t *testing.T) {
	batch := `{"refined": [
		{"original_index": 1, "refined_accomplishments": ["Led migration of legacy services to kubernetes"], "relevance_score": 0.7, "confidence_score": 0.8},
		{"original_index": 0, "refined_accomplishments": ["Engineered a python payments pipeline at scale"], "relevance_score": 0.9, "confidence_score": 0.9}
	]}`
	client := &stubClient{responses: []string{batch}}
	r := New(client, fastRetry(), zap.NewNop())

	experiences := []types.Experience{
		*sampleExperience(),
		{ID: "exp_002", Company: "Initech", Text: "Migrated legacy services to kubernetes over two years"},
	}
	refined := r.RefineBatch(context.Background(), experiences, sampleJob(), 10)

	require.Len(t, refined, 2)
	assert.Equal(t, "exp_001", refined[0].OriginalExperienceID)
	assert.Equal(t, 0.9, refined[0].RelevanceScore)
	assert.Equal(t, "exp_002", refined[1].OriginalExperienceID)
	assert.Equal(t, 0.7, refined[1].RelevanceScore)
	assert.Equal(t, 1, client.calls)
}

func TestRefineBatch_MissingIndexGetsFallback(t *testing.T) {
	batch := `{"refined": [
		{"original_index": 0, "refined_accomplishments": ["Engineered a python payments pipeline at scale"], "relevance_score": 0.9}
	]}`
	client := &stubClient{responses: []string{batch}}
	r := New(client, fastRetry(), zap.NewNop())

	experiences := []types.Experience{
		*sampleExperience(),
		{ID: "exp_002", Company: "Initech", Text: "Migrated legacy services to kubernetes over two years"},
	}
	refined := r.RefineBatch(context.Background(), experiences, sampleJob(), 10)

	require.Len(t, refined, 2)
	assert.Equal(t, "Fallback processing", refined[1].RefinementNotes)
	assert.Equal(t, 0.5, refined[1].ConfidenceScore)
}

func TestRefineBatch_FallsBackToSequential(t *testing.T) {
	failure := errors.New("bad batch")
	client := &stubClient{
		responses: []string{"", goodResponse, goodResponse},
		errs:      []error{failure},
	}
	r := New(client, fastRetry(), zap.NewNop())

	experiences := []types.Experience{
		*sampleExperience(),
		{ID: "exp_002", Company: "Initech", Text: "Migrated legacy services to kubernetes over two years"},
	}
	refined := r.RefineBatch(context.Background(), experiences, sampleJob(), 10)

	require.Len(t, refined, 2)
	// batch call + one call per experience
	assert.Equal(t, 3, client.calls)
}

func TestRefineBatch_RespectsMaxExperiences(t *testing.T) {
	batch := `{"refined": [
		{"original_index": 0, "refined_accomplishments": ["Engineered a python payments pipeline at scale"], "relevance_score": 0.9}
	]}`
	client := &stubClient{responses: []string{batch}}
	r := New(client, fastRetry(), zap.NewNop())

	experiences := []types.Experience{
		*sampleExperience(),
		{ID: "exp_002", Company: "Initech", Text: "Migrated legacy services to kubernetes over two years"},
	}
	refined := r.RefineBatch(context.Background(), experiences, sampleJob(), 1)
	assert.Len(t, refined, 1)
}

func TestRelevanceScore(t *testing.T) {
	exp := sampleExperience()
	job := sampleJob()

	// skills: python, docker of 4 job skills -> 2/4 = 0.5 weighted 0.5 = 0.25
	// keywords: "payments" and "pipeline" both appear in text -> 2/2 weighted 0.3 = 0.3
	// categories: none -> 0
	score := RelevanceScore(exp, job)
	assert.InDelta(t, 0.55, score, 1e-9)
}

func TestRelevanceScore_EmptyDenominators(t *testing.T) {
	exp := &types.Experience{Text: "Did something useful for a long time"}
	job := &types.JobDescription{Title: "X", Company: "Y", Summary: "Z"}
	assert.Equal(t, 0.0, RelevanceScore(exp, job))
	assert.Equal(t, 0.0, RelevanceScore(exp, nil))
}

func TestDecodeResponse_InvalidJSON(t *testing.T) {
	_, err := decodeResponse("not json at all")
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeBatchResponse_EmptyItems(t *testing.T) {
	_, err := decodeBatchResponse(`{"refined": []}`)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}
