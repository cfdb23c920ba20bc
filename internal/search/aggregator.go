// Package search executes weighted queries against the vector store and
// merges overlapping hits into one ranked candidate list.
package search

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/experience-matcher/internal/types"
	"github.com/jonathan/experience-matcher/internal/vectorstore"
)

// DefaultLimit is the result count used when the caller does not set one.
const DefaultLimit = 10

// multiMatchBoost is the per-extra-query boost applied to a merged hit's
// weighted-average score.
const multiMatchBoost = 0.1

// overFetchFactor controls how many hits are requested per query to absorb
// deduplication loss.
const overFetchFactor = 2

// Options controls one multi-query search.
type Options struct {
	// Limit bounds the aggregated result count.
	Limit int
	// MinScore drops merged hits whose final score falls below it. Zero
	// disables the filter.
	MinScore float64
	// Deduplicate merges hits sharing an experience id. When false, all
	// scaled hits are returned as-is.
	Deduplicate bool
	// Company restricts every query to experiences at the given company.
	Company string
}

// DefaultOptions returns deduplicating options with the given limit.
func DefaultOptions(limit int) Options {
	return Options{Limit: limit, Deduplicate: true}
}

// Aggregator runs the per-query searches and the merge step.
type Aggregator struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(store vectorstore.Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

type queryResult struct {
	query types.SearchQuery
	hits  []vectorstore.Result
	err   error
}

// Search runs every query concurrently, then merges the collected hits. A
// query with empty text is skipped; a query whose backend call fails
// contributes nothing. Only when every query fails is the result empty with
// the failures logged; the caller decides whether that is fatal.
func (a *Aggregator) Search(ctx context.Context, queries []types.SearchQuery, opts Options) []types.SearchHit {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	runnable := make([]types.SearchQuery, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q.Query) == "" {
			continue
		}
		runnable = append(runnable, q)
	}
	if len(runnable) == 0 {
		return nil
	}

	// One task per query. Results are merged only after every task is done.
	results := make([]queryResult, len(runnable))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range runnable {
		g.Go(func() error {
			hits, err := a.store.NearText(gctx, q.Query, opts.Limit*overFetchFactor, &vectorstore.SearchOptions{
				Company: opts.Company,
			})
			results[i] = queryResult{query: q, hits: hits, err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			a.logger.Warn("search query failed",
				zap.String("query", r.query.Query),
				zap.String("type", string(r.query.Type)),
				zap.Error(r.err))
		}
	}
	if failed == len(results) {
		a.logger.Error("all search queries failed", zap.Int("queries", failed))
		return nil
	}

	if !opts.Deduplicate {
		return flatten(results, opts.Limit)
	}
	return merge(results, opts)
}

// flatten concatenates all scaled hits without merging, sorted descending by
// scaled score.
func flatten(results []queryResult, limit int) []types.SearchHit {
	var hits []types.SearchHit
	for _, r := range results {
		if r.err != nil {
			continue
		}
		for _, hit := range r.hits {
			scaled := hit.Score * r.query.Priority
			exp := hit.Experience
			hits = append(hits, types.SearchHit{
				ExperienceID:   exp.ID,
				Experience:     &exp,
				RawScore:       hit.Score,
				ScaledScore:    scaled,
				FinalScore:     scaled,
				MatchedQueries: []types.SearchQuery{r.query},
				MatchCount:     1,
			})
		}
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

type mergedHit struct {
	hit    types.SearchHit
	avg    float64
	weight float64
}

// merge combines hits sharing an experience id with a running weighted
// average of scaled scores, then boosts hits matched by multiple queries:
// finalScore = avg × (1 + 0.1×(weight−1)).
func merge(results []queryResult, opts Options) []types.SearchHit {
	byID := make(map[string]*mergedHit)
	for _, r := range results {
		if r.err != nil {
			continue
		}
		for _, hit := range r.hits {
			scaled := hit.Score * r.query.Priority
			entry, ok := byID[hit.Experience.ID]
			if !ok {
				exp := hit.Experience
				byID[exp.ID] = &mergedHit{
					hit: types.SearchHit{
						ExperienceID:   exp.ID,
						Experience:     &exp,
						RawScore:       hit.Score,
						MatchedQueries: []types.SearchQuery{r.query},
						MatchCount:     1,
					},
					avg:    scaled,
					weight: 1,
				}
				continue
			}
			entry.avg = (entry.avg*entry.weight + scaled) / (entry.weight + 1)
			entry.weight++
			entry.hit.MatchCount++
			entry.hit.MatchedQueries = append(entry.hit.MatchedQueries, r.query)
		}
	}

	hits := make([]types.SearchHit, 0, len(byID))
	for _, entry := range byID {
		entry.hit.ScaledScore = entry.avg
		entry.hit.FinalScore = entry.avg * (1 + multiMatchBoost*(entry.weight-1))
		if opts.MinScore > 0 && entry.hit.FinalScore < opts.MinScore {
			continue
		}
		hits = append(hits, entry.hit)
	}
	sortHits(hits)
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits
}

// sortHits orders by final score descending, breaking ties by experience id
// so the output is deterministic.
func sortHits(hits []types.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore != hits[j].FinalScore {
			return hits[i].FinalScore > hits[j].FinalScore
		}
		return hits[i].ExperienceID < hits[j].ExperienceID
	})
}
