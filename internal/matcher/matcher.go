// Package matcher orchestrates a matching run: extract the job description,
// generate search queries, search stored experiences, refine them against the
// job, and aggregate the final result.
package matcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/refiner"
	"github.com/jonathan/experience-matcher/internal/search"
	"github.com/jonathan/experience-matcher/internal/types"
)

// Stage names one step of the matching pipeline.
type Stage string

const (
	StageExtracting        Stage = "extracting"
	StageGeneratingQueries Stage = "generating_queries"
	StageSearching         Stage = "searching"
	StageRefining          Stage = "refining"
	StageAggregating       Stage = "aggregating"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Defaults applied when Options fields are zero.
const (
	DefaultMaxExperiences    = 10
	DefaultMinRelevanceScore = 0.3
	DefaultMaxQueries        = 8
)

// noRefinementNotes marks records built without an AI refinement pass.
const noRefinementNotes = "No AI refinement applied"

// JobExtractor produces job descriptions from URLs or pasted text.
type JobExtractor interface {
	FromURL(ctx context.Context, url string) (*types.JobDescription, error)
	FromText(ctx context.Context, text string) (*types.JobDescription, error)
}

// QueryGenerator turns a job description into prioritized search queries.
type QueryGenerator interface {
	Generate(job *types.JobDescription, maxQueries int) []types.SearchQuery
}

// ExperienceSearcher runs the multi-query search.
type ExperienceSearcher interface {
	Search(ctx context.Context, queries []types.SearchQuery, opts search.Options) []types.SearchHit
}

// ExperienceRefiner tailors found experiences to the job.
type ExperienceRefiner interface {
	RefineBatch(ctx context.Context, experiences []types.Experience,
		job *types.JobDescription, maxExperiences int) []types.RefinedExperience
}

// Options tunes one Matcher instance.
type Options struct {
	MaxExperiences    int
	MinRelevanceScore float64
	MaxQueries        int
	RefinementType    refiner.RefinementType
	DisableRefinement bool
	DisableCache      bool
}

func (o *Options) applyDefaults() {
	if o.MaxExperiences <= 0 {
		o.MaxExperiences = DefaultMaxExperiences
	}
	if o.MinRelevanceScore <= 0 {
		o.MinRelevanceScore = DefaultMinRelevanceScore
	}
	if o.MaxQueries <= 0 {
		o.MaxQueries = DefaultMaxQueries
	}
	if o.RefinementType == "" {
		o.RefinementType = refiner.RefinementJobSpecific
	}
}

// Matcher coordinates the full pipeline. The result cache and the counters
// share one mutex; both live for the process lifetime.
type Matcher struct {
	extractor JobExtractor
	optimizer QueryGenerator
	searcher  ExperienceSearcher
	refiner   ExperienceRefiner
	opts      Options
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]*types.JobMatchResult
	stats types.MatcherStats
}

// New creates a Matcher. refiner may be nil; refinement then degrades to
// heuristic conversion.
func New(extractor JobExtractor, optimizer QueryGenerator, searcher ExperienceSearcher,
	experienceRefiner ExperienceRefiner, opts Options, logger *zap.Logger) *Matcher {

	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Matcher{
		extractor: extractor,
		optimizer: optimizer,
		searcher:  searcher,
		refiner:   experienceRefiner,
		opts:      opts,
		logger:    logger,
		cache:     make(map[string]*types.JobMatchResult),
	}
}

// MatchFromURL runs the complete pipeline for a job posting URL. Results are
// cached per (url, refinement type, limits) for the matcher's lifetime.
func (m *Matcher) MatchFromURL(ctx context.Context, jobURL string) (*types.JobMatchResult, error) {
	m.mu.Lock()
	m.stats.JobsProcessed++
	key := m.cacheKey(jobURL)
	if !m.opts.DisableCache {
		if cached, ok := m.cache[key]; ok {
			m.stats.CacheHits++
			m.stats.SuccessfulMatches++
			m.mu.Unlock()
			m.logger.Info("match cache hit", zap.String("url", jobURL))
			return cached, nil
		}
	}
	m.mu.Unlock()

	m.logStage(StageExtracting, jobURL)
	job, err := m.extractor.FromURL(ctx, jobURL)
	if err != nil {
		return nil, m.fail(StageExtracting, "extracting job description", err)
	}

	result, err := m.matchJob(ctx, job)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if !m.opts.DisableCache {
		m.cache[key] = result
	}
	m.stats.SuccessfulMatches++
	m.mu.Unlock()
	m.logStage(StageDone, jobURL)
	return result, nil
}

// MatchFromDescription runs the pipeline on pasted job text. title and
// company override the extracted values when non-empty. Not cached.
func (m *Matcher) MatchFromDescription(ctx context.Context, title, company, text string) (*types.JobMatchResult, error) {
	m.mu.Lock()
	m.stats.JobsProcessed++
	m.mu.Unlock()

	m.logStage(StageExtracting, title)
	job, err := m.extractor.FromText(ctx, text)
	if err != nil {
		return nil, m.fail(StageExtracting, "parsing job text", err)
	}
	if strings.TrimSpace(title) != "" {
		job.Title = strings.TrimSpace(title)
	}
	if strings.TrimSpace(company) != "" {
		job.Company = strings.TrimSpace(company)
	}

	result, err := m.matchJob(ctx, job)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.stats.SuccessfulMatches++
	m.mu.Unlock()
	return result, nil
}

// matchJob runs the query, search, refine and aggregate stages.
func (m *Matcher) matchJob(ctx context.Context, job *types.JobDescription) (*types.JobMatchResult, error) {
	m.logStage(StageGeneratingQueries, job.Title)
	queries := m.optimizer.Generate(job, m.opts.MaxQueries)
	if len(queries) == 0 {
		return nil, m.fail(StageGeneratingQueries, "no search queries could be generated", nil)
	}

	m.logStage(StageSearching, job.Title)
	hits := m.searcher.Search(ctx, queries, search.Options{
		Limit:       m.opts.MaxExperiences,
		MinScore:    m.opts.MinRelevanceScore,
		Deduplicate: true,
	})
	m.mu.Lock()
	m.stats.TotalExperiencesFound += len(hits)
	m.mu.Unlock()

	m.logStage(StageRefining, job.Title)
	refined := m.refineHits(ctx, hits, job)
	refined = finalizeRefined(refined, m.opts.MinRelevanceScore, m.opts.MaxExperiences)
	m.mu.Lock()
	m.stats.TotalExperiencesRefined += len(refined)
	m.mu.Unlock()

	m.logStage(StageAggregating, job.Title)
	return buildResult(job, refined, queries), nil
}

// refineHits runs AI refinement when available, falling back to a heuristic
// conversion of the raw hits.
func (m *Matcher) refineHits(ctx context.Context, hits []types.SearchHit, job *types.JobDescription) []types.RefinedExperience {
	experiences := make([]types.Experience, 0, len(hits))
	for _, hit := range hits {
		if hit.Experience != nil {
			experiences = append(experiences, *hit.Experience)
		}
	}
	if len(experiences) == 0 {
		return nil
	}

	if m.refiner == nil || m.opts.DisableRefinement {
		return convertUnrefined(experiences, job)
	}
	return m.refiner.RefineBatch(ctx, experiences, job, m.opts.MaxExperiences)
}

// convertUnrefined wraps raw experiences in valid refined records without an
// AI pass: the text is the sole accomplishment, scored by keyword overlap.
func convertUnrefined(experiences []types.Experience, job *types.JobDescription) []types.RefinedExperience {
	refined := make([]types.RefinedExperience, 0, len(experiences))
	for _, exp := range experiences {
		refined = append(refined, types.RefinedExperience{
			OriginalExperienceID: exp.ID,
			Company:              exp.Company,
			Role:                 exp.Role,
			Accomplishments:      []string{exp.Text},
			Skills:               exp.Skills,
			RelevanceScore:       basicRelevance(&exp, job),
			ConfidenceScore:      0.7,
			RefinementNotes:      noRefinementNotes,
		})
	}
	return refined
}

// basicRelevance is the share of job skills and keywords appearing verbatim
// in the experience text, clamped to [0,1].
func basicRelevance(exp *types.Experience, job *types.JobDescription) float64 {
	if job == nil {
		return 0.0
	}
	keywords := append(append([]string{}, job.SkillsMentioned...), job.ExtractedKeywords...)
	if len(keywords) == 0 {
		return 0.0
	}
	text := strings.ToLower(exp.Text)
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			matches++
		}
	}
	score := float64(matches) / float64(len(keywords))
	if score > 1 {
		score = 1
	}
	return score
}

// finalizeRefined filters by minimum relevance, sorts descending, and
// truncates to maxExperiences.
func finalizeRefined(refined []types.RefinedExperience, minScore float64, maxExperiences int) []types.RefinedExperience {
	kept := make([]types.RefinedExperience, 0, len(refined))
	for _, record := range refined {
		if record.RelevanceScore >= minScore {
			kept = append(kept, record)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})
	if maxExperiences > 0 && len(kept) > maxExperiences {
		kept = kept[:maxExperiences]
	}
	return kept
}

// buildResult aggregates skills and tools across the refined records and
// computes the overall match score.
func buildResult(job *types.JobDescription, refined []types.RefinedExperience, queries []types.SearchQuery) *types.JobMatchResult {
	var skills, tools []string
	for _, record := range refined {
		skills = append(skills, record.Skills...)
		tools = append(tools, record.ToolsTechnologies...)
	}
	skills = types.DedupeFold(skills)
	tools = types.DedupeFold(tools)

	overall := 0.0
	avgRelevance := 0.0
	if len(refined) > 0 {
		sumRelevance, sumConfidence := 0.0, 0.0
		for _, record := range refined {
			sumRelevance += record.RelevanceScore
			sumConfidence += record.ConfidenceScore
		}
		avgRelevance = sumRelevance / float64(len(refined))
		avgConfidence := sumConfidence / float64(len(refined))
		overall = (avgRelevance + avgConfidence) / 2
	}

	topSkills := skills
	if len(topSkills) > 10 {
		topSkills = topSkills[:10]
	}
	summary := fmt.Sprintf("%d experiences matched, avg relevance %.2f, top skills: %s",
		len(refined), avgRelevance, strings.Join(topSkills, ", "))

	return &types.JobMatchResult{
		JobDescription:     job,
		RefinedExperiences: refined,
		AggregatedSkills:   skills,
		AggregatedTools:    tools,
		OverallMatchScore:  overall,
		SearchQueriesUsed:  queries,
		MatchingSummary:    summary,
		CreatedAt:          time.Now().UTC(),
	}
}

// Stats returns a snapshot of the matcher's counters.
func (m *Matcher) Stats() types.MatcherStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.stats
	if snapshot.JobsProcessed > 0 {
		snapshot.SuccessRate = float64(snapshot.SuccessfulMatches) / float64(snapshot.JobsProcessed)
	}
	return snapshot
}

// ClearCache drops all cached match results.
func (m *Matcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*types.JobMatchResult)
}

func (m *Matcher) fail(stage Stage, message string, cause error) error {
	m.mu.Lock()
	m.stats.FailedMatches++
	m.mu.Unlock()
	m.logger.Error("matching run failed",
		zap.String("stage", string(stage)),
		zap.String("reason", message),
		zap.Error(cause))
	return &MatchingError{Stage: stage, Message: message, Cause: cause}
}

func (m *Matcher) logStage(stage Stage, subject string) {
	m.logger.Info("matching stage", zap.String("stage", string(stage)), zap.String("subject", subject))
}

func (m *Matcher) cacheKey(jobURL string) string {
	sum := sha256.Sum256([]byte(jobURL))
	return fmt.Sprintf("%s_%s_%d_%.2f",
		hex.EncodeToString(sum[:8]), m.opts.RefinementType, m.opts.MaxExperiences, m.opts.MinRelevanceScore)
}
