package types

import "time"

// JobMatchResult is the terminal artifact of one matching run. Refined
// experiences are sorted descending by relevance score.
type JobMatchResult struct {
	JobDescription     *JobDescription     `json:"job_description"`
	RefinedExperiences []RefinedExperience `json:"refined_experiences"`
	AggregatedSkills   []string            `json:"aggregated_skills,omitempty"`
	AggregatedTools    []string            `json:"aggregated_tools,omitempty"`
	OverallMatchScore  float64             `json:"overall_match_score"`
	SearchQueriesUsed  []SearchQuery       `json:"search_queries_used,omitempty"`
	MatchingSummary    string              `json:"matching_summary,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// MatcherStats is a snapshot of the orchestrator's usage counters.
type MatcherStats struct {
	JobsProcessed           int     `json:"jobs_processed"`
	SuccessfulMatches       int     `json:"successful_matches"`
	FailedMatches           int     `json:"failed_matches"`
	CacheHits               int     `json:"cache_hits"`
	TotalExperiencesFound   int     `json:"total_experiences_found"`
	TotalExperiencesRefined int     `json:"total_experiences_refined"`
	SuccessRate             float64 `json:"success_rate"`
}
