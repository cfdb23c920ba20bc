package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/types"
	"github.com/jonathan/experience-matcher/internal/vectorstore"
)

// fakeStore serves canned results keyed by query text.
type fakeStore struct {
	mu      sync.Mutex
	results map[string][]vectorstore.Result
	errs    map[string]error
	calls   []string
	limits  []int
}

func (f *fakeStore) NearText(_ context.Context, query string, limit int, _ *vectorstore.SearchOptions) ([]vectorstore.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeStore) AddExperience(context.Context, *types.Experience) (string, error) {
	return "", nil
}
func (f *fakeStore) GetExperience(context.Context, string) (*types.Experience, error) {
	return nil, nil
}
func (f *fakeStore) ListExperiences(context.Context, int) ([]types.Experience, error) {
	return nil, nil
}
func (f *fakeStore) DeleteExperience(context.Context, string) error { return nil }
func (f *fakeStore) Close() error                                   { return nil }

func hit(id string, score float64) vectorstore.Result {
	return vectorstore.Result{
		Experience: types.Experience{ID: id, Company: "Acme", Text: "Worked on " + id},
		Score:      score,
	}
}

func TestSearch_MergesOverlappingHits(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"python": {hit("exp_1", 0.9)},
		"docker": {hit("exp_1", 0.8)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	queries := []types.SearchQuery{
		{Query: "python", Type: types.QueryPrimarySkills, Priority: 1.0},
		{Query: "docker", Type: types.QueryTechnologyStack, Priority: 0.8},
	}
	hits := agg.Search(context.Background(), queries, DefaultOptions(10))

	require.Len(t, hits, 1)
	merged := hits[0]
	assert.Equal(t, "exp_1", merged.ExperienceID)
	assert.Equal(t, 2, merged.MatchCount)
	assert.Len(t, merged.MatchedQueries, 2)
	// ((0.9*1.0 + 0.8*0.8)/2) * 1.1
	assert.InDelta(t, 0.869, merged.FinalScore, 0.0005)
}

func TestSearch_DedupFormula(t *testing.T) {
	// Two scaled scores s1, s2 for the same id must merge to ((s1+s2)/2)*1.1.
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"a": {hit("exp_1", 0.6)},
		"b": {hit("exp_1", 0.4)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	queries := []types.SearchQuery{
		{Query: "a", Priority: 1.0},
		{Query: "b", Priority: 1.0},
	}
	hits := agg.Search(context.Background(), queries, DefaultOptions(10))

	require.Len(t, hits, 1)
	assert.InDelta(t, ((0.6+0.4)/2)*1.1, hits[0].FinalScore, 1e-9)
	assert.InDelta(t, 0.5, hits[0].ScaledScore, 1e-9)
}

func TestSearch_RankingMonotonic(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"q": {hit("exp_low", 0.3), hit("exp_high", 0.9), hit("exp_mid", 0.6)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	hits := agg.Search(context.Background(),
		[]types.SearchQuery{{Query: "q", Priority: 1.0}}, DefaultOptions(10))

	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].FinalScore, hits[i].FinalScore)
	}
	assert.Equal(t, "exp_high", hits[0].ExperienceID)
}

func TestSearch_MinScoreFilter(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"q": {hit("exp_1", 0.9), hit("exp_2", 0.2)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	opts := DefaultOptions(10)
	opts.MinScore = 0.5
	hits := agg.Search(context.Background(),
		[]types.SearchQuery{{Query: "q", Priority: 1.0}}, opts)

	require.Len(t, hits, 1)
	assert.Equal(t, "exp_1", hits[0].ExperienceID)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"q": {hit("exp_1", 0.9), hit("exp_2", 0.8), hit("exp_3", 0.7)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	hits := agg.Search(context.Background(),
		[]types.SearchQuery{{Query: "q", Priority: 1.0}}, DefaultOptions(2))
	assert.Len(t, hits, 2)
}

func TestSearch_OverFetchesPerQuery(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{}}
	agg := NewAggregator(store, zap.NewNop())

	agg.Search(context.Background(),
		[]types.SearchQuery{{Query: "q", Priority: 1.0}}, DefaultOptions(5))
	require.Len(t, store.limits, 1)
	assert.Equal(t, 10, store.limits[0])
}

func TestSearch_SkipsEmptyQueries(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"q": {hit("exp_1", 0.9)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	queries := []types.SearchQuery{
		{Query: "   ", Priority: 1.0},
		{Query: "q", Priority: 1.0},
	}
	hits := agg.Search(context.Background(), queries, DefaultOptions(10))

	require.Len(t, hits, 1)
	assert.Equal(t, []string{"q"}, store.calls)
}

func TestSearch_PartialFailureDegrades(t *testing.T) {
	store := &fakeStore{
		results: map[string][]vectorstore.Result{
			"good": {hit("exp_1", 0.9)},
		},
		errs: map[string]error{
			"bad": errors.New("backend unreachable"),
		},
	}
	agg := NewAggregator(store, zap.NewNop())

	queries := []types.SearchQuery{
		{Query: "bad", Priority: 1.0},
		{Query: "good", Priority: 0.8},
	}
	hits := agg.Search(context.Background(), queries, DefaultOptions(10))

	require.Len(t, hits, 1)
	assert.Equal(t, "exp_1", hits[0].ExperienceID)
	assert.Equal(t, 1, hits[0].MatchCount)
}

func TestSearch_AllQueriesFail(t *testing.T) {
	store := &fakeStore{errs: map[string]error{
		"a": errors.New("down"),
		"b": errors.New("down"),
	}}
	agg := NewAggregator(store, zap.NewNop())

	queries := []types.SearchQuery{
		{Query: "a", Priority: 1.0},
		{Query: "b", Priority: 0.8},
	}
	hits := agg.Search(context.Background(), queries, DefaultOptions(10))
	assert.Empty(t, hits)
}

func TestSearch_NoDeduplicate(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"a": {hit("exp_1", 0.9)},
		"b": {hit("exp_1", 0.5)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	opts := Options{Limit: 10, Deduplicate: false}
	queries := []types.SearchQuery{
		{Query: "a", Priority: 1.0},
		{Query: "b", Priority: 1.0},
	}
	hits := agg.Search(context.Background(), queries, opts)

	require.Len(t, hits, 2)
	assert.Equal(t, 0.9, hits[0].ScaledScore)
	assert.Equal(t, 0.5, hits[1].ScaledScore)
}

func TestSearch_SingleMatchNoBoost(t *testing.T) {
	store := &fakeStore{results: map[string][]vectorstore.Result{
		"q": {hit("exp_1", 0.8)},
	}}
	agg := NewAggregator(store, zap.NewNop())

	hits := agg.Search(context.Background(),
		[]types.SearchQuery{{Query: "q", Priority: 0.5}}, DefaultOptions(10))

	require.Len(t, hits, 1)
	// weight 1 means no boost: finalScore == scaledScore.
	assert.InDelta(t, 0.4, hits[0].FinalScore, 1e-9)
}
