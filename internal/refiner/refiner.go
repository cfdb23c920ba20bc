// Package refiner tailors and scores stored experiences against a job
// description using AI refinement with caching, retry, and heuristic
// fallbacks.
package refiner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/llm"
	"github.com/jonathan/experience-matcher/internal/prompts"
	"github.com/jonathan/experience-matcher/internal/types"
)

// RefinementType selects the tailoring emphasis passed to the model.
type RefinementType string

const (
	RefinementGeneral       RefinementType = "general"
	RefinementJobSpecific   RefinementType = "job_specific"
	RefinementSkillsFocused RefinementType = "skills_focused"
)

// defaultConfidence is assumed when the model omits a confidence score.
const defaultConfidence = 0.8

// fallbackNotes marks records produced without a usable AI response.
const fallbackNotes = "Fallback processing"

// Stats is a snapshot of the refiner's counters.
type Stats struct {
	ExperiencesRefined    int     `json:"experiences_refined"`
	SuccessfulRefinements int     `json:"successful_refinements"`
	FailedRefinements     int     `json:"failed_refinements"`
	CacheHits             int     `json:"cache_hits"`
	SuccessRate           float64 `json:"success_rate"`
}

// Refiner drives AI experience refinement. The cache lives for the process
// lifetime and is unbounded; callers needing bounded memory must clear it.
type Refiner struct {
	client llm.Client
	retry  llm.RetryPolicy
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*types.RefinedExperience
	stats Stats
}

// New creates a Refiner around an LLM client and an explicit retry policy.
func New(client llm.Client, retry llm.RetryPolicy, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	retry.ApplyDefaults()
	return &Refiner{
		client: client,
		retry:  retry,
		logger: logger,
		cache:  make(map[string]*types.RefinedExperience),
	}
}

// Refine tailors one experience. A cache hit short-circuits the AI call.
// When the AI call exhausts its retries, returns unusable data, or produces
// an invalid record, a minimal fallback record is returned instead of an
// error.
func (r *Refiner) Refine(ctx context.Context, exp *types.Experience, job *types.JobDescription,
	refinementType RefinementType, specialization string) *types.RefinedExperience {

	key := cacheKey(exp, job, refinementType)

	r.mu.Lock()
	r.stats.ExperiencesRefined++
	if cached, ok := r.cache[key]; ok {
		r.stats.CacheHits++
		r.stats.SuccessfulRefinements++
		r.mu.Unlock()
		r.logger.Debug("refinement cache hit", zap.String("experience_id", exp.ID))
		return cached
	}
	r.mu.Unlock()

	refined, err := r.refineUncached(ctx, exp, job, refinementType, specialization)
	if err != nil {
		r.logger.Warn("refinement failed, using fallback record",
			zap.String("experience_id", exp.ID),
			zap.Error(err))
		refined = r.fallbackRecord(exp, job)
		r.mu.Lock()
		r.stats.FailedRefinements++
		r.mu.Unlock()
		return refined
	}

	r.mu.Lock()
	r.cache[key] = refined
	r.stats.SuccessfulRefinements++
	r.mu.Unlock()
	return refined
}

func (r *Refiner) refineUncached(ctx context.Context, exp *types.Experience, job *types.JobDescription,
	refinementType RefinementType, specialization string) (*types.RefinedExperience, error) {

	prompt := buildRefinementPrompt(exp, job, refinementType, specialization)

	var raw string
	err := r.retry.Do(ctx, func() error {
		var callErr error
		raw, callErr = r.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
		return callErr
	})
	if err != nil {
		return nil, &llm.IntegrationError{Message: "refinement call exhausted retries", Cause: err}
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}

	refined := buildRefined(exp, job, resp)
	if err := refined.Validate(); err != nil {
		return nil, err
	}
	return refined, nil
}

// RefineBatch tailors up to maxExperiences experiences in one AI call. If
// the combined call fails or its response cannot be matched back to the
// inputs, it falls back to sequential Refine calls.
func (r *Refiner) RefineBatch(ctx context.Context, experiences []types.Experience,
	job *types.JobDescription, maxExperiences int) []types.RefinedExperience {

	if maxExperiences > 0 && len(experiences) > maxExperiences {
		experiences = experiences[:maxExperiences]
	}
	if len(experiences) == 0 {
		return nil
	}

	refined, err := r.refineBatchCombined(ctx, experiences, job)
	if err != nil {
		r.logger.Warn("batch refinement failed, refining sequentially", zap.Error(err))
		refined = make([]types.RefinedExperience, 0, len(experiences))
		for i := range experiences {
			refined = append(refined, *r.Refine(ctx, &experiences[i], job, RefinementJobSpecific, ""))
		}
	}
	return refined
}

func (r *Refiner) refineBatchCombined(ctx context.Context, experiences []types.Experience,
	job *types.JobDescription) ([]types.RefinedExperience, error) {

	prompt := buildBatchPrompt(experiences, job)

	var raw string
	err := r.retry.Do(ctx, func() error {
		var callErr error
		raw, callErr = r.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
		return callErr
	})
	if err != nil {
		return nil, &llm.IntegrationError{Message: "batch refinement call exhausted retries", Cause: err}
	}

	resp, err := decodeBatchResponse(raw)
	if err != nil {
		return nil, err
	}

	items := resp.items()
	byIndex := make(map[int]*aiBatchItem, len(items))
	for i := range items {
		if items[i].OriginalIndex != nil {
			byIndex[*items[i].OriginalIndex] = &items[i]
		}
	}

	refined := make([]types.RefinedExperience, 0, len(experiences))
	for i := range experiences {
		exp := &experiences[i]
		item, ok := byIndex[i]
		if !ok {
			// Missing from the response; synthesize a neutral result.
			refined = append(refined, *r.fallbackRecord(exp, job))
			continue
		}
		record := buildRefined(exp, job, &item.aiResponse)
		if err := record.Validate(); err != nil {
			record = r.fallbackRecord(exp, job)
		}
		refined = append(refined, *record)
	}
	return refined, nil
}

// Stats returns a snapshot of the refiner's counters.
func (r *Refiner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.stats
	if snapshot.ExperiencesRefined > 0 {
		snapshot.SuccessRate = float64(snapshot.SuccessfulRefinements) / float64(snapshot.ExperiencesRefined)
	}
	return snapshot
}

// ClearCache empties the refinement cache.
func (r *Refiner) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*types.RefinedExperience)
}

// fallbackRecord builds the minimal valid record used when AI refinement is
// unavailable: the original text as sole accomplishment at confidence 0.5.
func (r *Refiner) fallbackRecord(exp *types.Experience, job *types.JobDescription) *types.RefinedExperience {
	return &types.RefinedExperience{
		OriginalExperienceID: exp.ID,
		Company:              exp.Company,
		Role:                 exp.Role,
		Accomplishments:      []string{exp.Text},
		Skills:               exp.Skills,
		RelevanceScore:       RelevanceScore(exp, job),
		ConfidenceScore:      0.5,
		RefinementNotes:      fallbackNotes,
	}
}

// buildRefined maps a decoded AI response onto the strict record shape,
// filling gaps from the original experience and the local heuristic score.
func buildRefined(exp *types.Experience, job *types.JobDescription, resp *aiResponse) *types.RefinedExperience {
	accomplishments := resp.accomplishments()
	if len(accomplishments) == 0 {
		accomplishments = []string{exp.Text}
	}

	relevance := resp.RelevanceScore
	if relevance == 0 && job != nil {
		relevance = RelevanceScore(exp, job)
	}

	confidence := defaultConfidence
	if resp.ConfidenceScore != nil {
		confidence = *resp.ConfidenceScore
	}

	return &types.RefinedExperience{
		OriginalExperienceID: exp.ID,
		Company:              exp.Company,
		Role:                 exp.Role,
		Accomplishments:      accomplishments,
		Skills:               types.DedupeFold(resp.skills()),
		ToolsTechnologies:    types.DedupeFold(resp.ToolsTechnologies),
		RelevanceScore:       relevance,
		ConfidenceScore:      confidence,
		KeywordsMatched:      types.DedupeFold(resp.keywords()),
		RefinementNotes:      resp.TailoringNotes,
	}
}

func buildRefinementPrompt(exp *types.Experience, job *types.JobDescription,
	refinementType RefinementType, specialization string) string {

	if refinementType == "" {
		refinementType = RefinementGeneral
	}
	if specialization == "" {
		specialization = "none"
	}

	data := map[string]string{
		"ExperienceCompany": exp.Company,
		"ExperienceRole":    exp.Role,
		"ExperienceText":    exp.Text,
		"RefinementType":    string(refinementType),
		"Specialization":    specialization,
		"JobTitle":          "",
		"JobCompany":        "",
		"JobSkills":         "",
		"JobKeywords":       "",
	}
	if job != nil {
		data["JobTitle"] = job.Title
		data["JobCompany"] = job.Company
		data["JobSkills"] = strings.Join(job.SkillsMentioned, ", ")
		data["JobKeywords"] = strings.Join(job.ExtractedKeywords, ", ")
	}

	template := prompts.MustGet("refinement.json", "refine-experience")
	return prompts.Format(template, data)
}

func buildBatchPrompt(experiences []types.Experience, job *types.JobDescription) string {
	var sb strings.Builder
	for i, exp := range experiences {
		fmt.Fprintf(&sb, "[%d] company: %s, role: %s\n%s\n\n", i, exp.Company, exp.Role, exp.Text)
	}

	data := map[string]string{
		"Experiences":    sb.String(),
		"RefinementType": string(RefinementJobSpecific),
		"JobTitle":       "",
		"JobCompany":     "",
		"JobSkills":      "",
	}
	if job != nil {
		data["JobTitle"] = job.Title
		data["JobCompany"] = job.Company
		data["JobSkills"] = strings.Join(job.SkillsMentioned, ", ")
	}

	template := prompts.MustGet("refinement.json", "refine-batch")
	return prompts.Format(template, data)
}

// cacheKey combines the experience identity, the job identity, and the
// refinement type.
func cacheKey(exp *types.Experience, job *types.JobDescription, refinementType RefinementType) string {
	expHash := hashString(exp.Company + "|" + exp.Text)

	jobHash := ""
	if job != nil {
		jobHash = hashString(job.Title + "|" + job.Company + "|" + strings.Join(job.SkillsMentioned, ","))
	}
	return expHash + "_" + jobHash + "_" + string(refinementType)
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
