// Package queryopt turns a job description into a ranked, deduplicated set
// of weighted search queries using several independent strategies.
package queryopt

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/types"
)

// DefaultMaxQueries is used when the caller does not bound the query count.
const DefaultMaxQueries = 8

// rankPenalty is the per-rank decay applied to a query's final priority.
const rankPenalty = 0.05

// Optimizer generates search queries from job descriptions. It is stateless
// and safe for concurrent use.
type Optimizer struct {
	logger *zap.Logger
}

// New creates an Optimizer.
func New(logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{logger: logger}
}

// Generate produces at most maxQueries ranked search queries. Every strategy
// runs unconditionally; a strategy that finds nothing simply contributes no
// queries. The output is deterministic for a fixed job description.
func (o *Optimizer) Generate(job *types.JobDescription, maxQueries int) []types.SearchQuery {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}

	var queries []types.SearchQuery

	if q, ok := primarySkillsQuery(job); ok {
		queries = append(queries, q)
	}
	queries = append(queries, technologyQueries(job)...)
	queries = append(queries, responsibilityQueries(job)...)
	queries = append(queries, experienceLevelQueries(job)...)
	queries = append(queries, industryQueries(job)...)
	queries = append(queries, keywordQueries(job)...)

	ranked := rankAndFilter(queries, maxQueries)
	o.logger.Debug("generated search queries",
		zap.String("job_title", job.Title),
		zap.Int("candidates", len(queries)),
		zap.Int("selected", len(ranked)))
	return ranked
}

// FallbackQuery builds the single query used when no strategy produced
// anything: the top five mentioned skills, or an empty query if none exist.
func FallbackQuery(job *types.JobDescription) types.SearchQuery {
	return types.SearchQuery{
		Query:    strings.Join(job.TopSkills(5), " "),
		Type:     types.QueryPrimarySkills,
		Priority: 1.0,
	}
}

// rankAndFilter sorts candidates by priority, drops case-insensitive
// duplicate query strings keeping the first occurrence, truncates to
// maxQueries, and assigns rank and final priority.
func rankAndFilter(queries []types.SearchQuery, maxQueries int) []types.SearchQuery {
	if len(queries) == 0 {
		return nil
	}

	sorted := make([]types.SearchQuery, len(queries))
	copy(sorted, queries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	unique := make([]types.SearchQuery, 0, maxQueries)
	seen := make(map[string]bool)
	for _, q := range sorted {
		key := strings.ToLower(q.Query)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, q)
		if len(unique) >= maxQueries {
			break
		}
	}

	for i := range unique {
		unique[i].Rank = i + 1
		unique[i].FinalPriority = unique[i].Priority * (1 - float64(i)*rankPenalty)
	}
	return unique
}
