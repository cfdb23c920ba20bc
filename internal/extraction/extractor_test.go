package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/fetch"
	"github.com/jonathan/experience-matcher/internal/llm"
)

const postingText = `Senior Backend Engineer

Acme is seeking a senior backend engineer to join the payments team.

Requirements:
- 5+ years of experience with Python and Go in production systems
- Strong knowledge of PostgreSQL and Redis
- Experience with Docker and Kubernetes deployments

Responsibilities:
- Design and build scalable payment APIs
- Operate and tune PostgreSQL databases under load
- Mentor junior engineers across the team

We value expertise in distributed systems and at least 3 years working with AWS.
`

type stubFetcher struct {
	result *fetch.Result
	err    error
}

func (s *stubFetcher) JobPosting(context.Context, string) (*fetch.Result, error) {
	return s.result, s.err
}

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

func (s *stubLLM) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubLLM) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubLLM) Close() error                  { return nil }

func quickRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
}

func TestFromText_HeuristicsOnly(t *testing.T) {
	e := New(nil, nil, quickRetry(), zap.NewNop())

	job, err := e.FromText(context.Background(), postingText)
	require.NoError(t, err)

	assert.Equal(t, "Senior Backend Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Contains(t, job.SkillsMentioned, "python")
	assert.Contains(t, job.SkillsMentioned, "postgresql")
	assert.Contains(t, job.SkillsMentioned, "kubernetes")

	require.NotEmpty(t, job.Requirements)
	assert.Contains(t, job.Requirements[0], "5+ years")
	require.NotEmpty(t, job.Responsibilities)
	assert.Contains(t, job.Responsibilities[0], "payment APIs")
	assert.NotEmpty(t, job.ExtractedKeywords)
}

func TestFromText_TooShort(t *testing.T) {
	e := New(nil, nil, quickRetry(), zap.NewNop())
	_, err := e.FromText(context.Background(), "short")
	var extractionErr *Error
	require.ErrorAs(t, err, &extractionErr)
}

func TestFromURL_UsesFetchedContent(t *testing.T) {
	fetcher := &stubFetcher{result: &fetch.Result{
		URL:    "https://boards.greenhouse.io/acme/jobs/1",
		Domain: "boards.greenhouse.io",
		Title:  "Senior Backend Engineer - Acme",
		Text:   postingText,
	}}
	e := New(fetcher, nil, quickRetry(), zap.NewNop())

	job, err := e.FromURL(context.Background(), "https://boards.greenhouse.io/acme/jobs/1")
	require.NoError(t, err)

	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", job.URL)
	assert.Equal(t, "Senior Backend Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
}

func TestFromURL_FetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	e := New(fetcher, nil, quickRetry(), zap.NewNop())

	_, err := e.FromURL(context.Background(), "https://example.com/job")
	var extractionErr *Error
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "fetching job posting")
}

func TestFromText_AIEnhancementMerged(t *testing.T) {
	client := &stubLLM{response: `{
		"title": "Senior Backend Engineer (Payments)",
		"summary": "Own the payments platform backend.",
		"skills_mentioned": ["grpc"],
		"inferred_industry": "fintech"
	}`}
	e := New(nil, client, quickRetry(), zap.NewNop())

	job, err := e.FromText(context.Background(), postingText)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "Senior Backend Engineer (Payments)", job.Title)
	assert.Equal(t, "Own the payments platform backend.", job.Summary)
	assert.Equal(t, "fintech", job.InferredIndustry)
	// AI skills are merged ahead of heuristic ones, not replacing them.
	assert.Contains(t, job.SkillsMentioned, "grpc")
	assert.Contains(t, job.SkillsMentioned, "python")
	// Heuristic company stands since it was resolved.
	assert.Equal(t, "Acme", job.Company)
}

func TestFromText_AIFailureKeepsHeuristics(t *testing.T) {
	client := &stubLLM{err: errors.New("quota exceeded")}
	e := New(nil, client, quickRetry(), zap.NewNop())

	job, err := e.FromText(context.Background(), postingText)
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", job.Title)
}

func TestFromText_AIBadJSONKeepsHeuristics(t *testing.T) {
	client := &stubLLM{response: "```json\n{broken\n```"}
	e := New(nil, client, quickRetry(), zap.NewNop())

	job, err := e.FromText(context.Background(), postingText)
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", job.Title)
}

func TestExtractSkills_PatternsAndAcronyms(t *testing.T) {
	text := "We use Node.js, PrestoSQL and InfluxDB on AWS with strong CI/CD practices."
	skills := extractSkills(text)

	assert.Contains(t, skills, "node.js")
	assert.Contains(t, skills, "prestosql")
	assert.Contains(t, skills, "influxdb")
	assert.Contains(t, skills, "aws")
}

func TestExtractSection_StopsAtNextHeader(t *testing.T) {
	text := strings.Join([]string{
		"Requirements:",
		"- Solid grasp of distributed systems",
		"- Production Go experience required",
		"Benefits:",
		"- Free snacks every single day",
	}, "\n")

	reqs := extractSection(text, requirementsHeaderRe, 10)
	require.Len(t, reqs, 2)
	assert.NotContains(t, strings.Join(reqs, " "), "snacks")
}

func TestExtractCompany_FromDomainSkipsJobBoards(t *testing.T) {
	assert.Equal(t, "Acme", extractCompany("", "acme.com"))
	assert.Equal(t, "Unknown Company", extractCompany("nothing useful here", "boards.greenhouse.io"))
	assert.Equal(t, "Acme", extractCompany("Acme is seeking great engineers", ""))
}

func TestExtractTitle_Fallbacks(t *testing.T) {
	assert.Equal(t, "Staff Engineer", extractTitle("Staff Engineer - Acme", ""))
	assert.Equal(t, "Data Engineer", extractTitle("", "Role: Data Engineer\nmore text"))
	assert.Equal(t, "Unknown Position", extractTitle("Apply Now", ""))
}
