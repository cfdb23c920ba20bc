// Package extraction turns job posting pages or raw text into structured,
// validated job descriptions. Heuristic parsing always runs first; when an
// AI client is configured its output refines the heuristic result.
package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/fetch"
	"github.com/jonathan/experience-matcher/internal/llm"
	"github.com/jonathan/experience-matcher/internal/prompts"
	"github.com/jonathan/experience-matcher/internal/types"
)

// PostingFetcher retrieves a job posting page. *fetch.Fetcher satisfies it.
type PostingFetcher interface {
	JobPosting(ctx context.Context, url string) (*fetch.Result, error)
}

// Extractor builds JobDescription values from URLs or raw text.
type Extractor struct {
	fetcher PostingFetcher
	client  llm.Client
	retry   llm.RetryPolicy
	logger  *zap.Logger
}

// New creates an Extractor. client may be nil, in which case only heuristic
// parsing runs.
func New(fetcher PostingFetcher, client llm.Client, retry llm.RetryPolicy, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	retry.ApplyDefaults()
	return &Extractor{fetcher: fetcher, client: client, retry: retry, logger: logger}
}

// FromURL fetches a posting and extracts a validated job description.
func (e *Extractor) FromURL(ctx context.Context, url string) (*types.JobDescription, error) {
	if e.fetcher == nil {
		return nil, &Error{Message: "no fetcher configured"}
	}

	result, err := e.fetcher.JobPosting(ctx, url)
	if err != nil {
		return nil, &Error{Message: "fetching job posting", Cause: err}
	}

	job := heuristicParse(result.Text, result.Title, result.Domain, url)
	e.enhance(ctx, job)

	if err := job.Validate(); err != nil {
		return nil, &Error{Message: "extracted job description is invalid", Cause: err}
	}

	e.logger.Info("extracted job description",
		zap.String("url", url),
		zap.String("title", job.Title),
		zap.String("company", job.Company),
		zap.Int("skills", len(job.SkillsMentioned)))
	return job, nil
}

// FromText extracts a validated job description from pasted posting text.
func (e *Extractor) FromText(ctx context.Context, text string) (*types.JobDescription, error) {
	text = strings.TrimSpace(text)
	if len(text) < 50 {
		return nil, &Error{Message: "job text too short to parse"}
	}

	job := heuristicParse(text, "", "", "")
	e.enhance(ctx, job)

	if err := job.Validate(); err != nil {
		return nil, &Error{Message: "extracted job description is invalid", Cause: err}
	}
	return job, nil
}

// aiJob is the recognized shape of the AI extraction response.
type aiJob struct {
	Title             string   `json:"title"`
	Company           string   `json:"company"`
	Summary           string   `json:"summary"`
	Requirements      []string `json:"requirements"`
	Responsibilities  []string `json:"responsibilities"`
	SkillsMentioned   []string `json:"skills_mentioned"`
	ExtractedKeywords []string `json:"extracted_keywords"`
	InferredIndustry  string   `json:"inferred_industry"`
}

// enhance refines the heuristic parse with an AI extraction pass. Failures
// leave the heuristic result untouched.
func (e *Extractor) enhance(ctx context.Context, job *types.JobDescription) {
	if e.client == nil {
		return
	}

	jobText := job.FullText
	if len(jobText) > 8000 {
		jobText = jobText[:8000]
	}
	template := prompts.MustGet("extraction.json", "extract-job-description")
	prompt := prompts.Format(template, map[string]string{"JobText": jobText})

	var raw string
	err := e.retry.Do(ctx, func() error {
		var callErr error
		raw, callErr = e.client.GenerateJSON(ctx, prompt, llm.TierLite)
		return callErr
	})
	if err != nil {
		e.logger.Warn("AI extraction failed, keeping heuristic parse", zap.Error(err))
		return
	}

	var enhanced aiJob
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &enhanced); err != nil {
		e.logger.Warn("AI extraction returned unparseable JSON", zap.Error(err))
		return
	}
	mergeEnhancement(job, &enhanced)
}

// mergeEnhancement overlays non-empty AI fields onto the heuristic parse.
func mergeEnhancement(job *types.JobDescription, enhanced *aiJob) {
	if t := strings.TrimSpace(enhanced.Title); t != "" {
		job.Title = t
	}
	if c := strings.TrimSpace(enhanced.Company); c != "" && job.Company == "Unknown Company" {
		job.Company = c
	}
	if s := strings.TrimSpace(enhanced.Summary); s != "" {
		job.Summary = s
	}
	if len(enhanced.Requirements) > 0 {
		job.Requirements = enhanced.Requirements
	}
	if len(enhanced.Responsibilities) > 0 {
		job.Responsibilities = enhanced.Responsibilities
	}
	if len(enhanced.SkillsMentioned) > 0 {
		job.SkillsMentioned = types.DedupeFold(append(enhanced.SkillsMentioned, job.SkillsMentioned...))
	}
	if len(enhanced.ExtractedKeywords) > 0 {
		job.ExtractedKeywords = types.DedupeFold(append(enhanced.ExtractedKeywords, job.ExtractedKeywords...))
	}
	if i := strings.TrimSpace(enhanced.InferredIndustry); i != "" {
		job.InferredIndustry = i
	}
}
