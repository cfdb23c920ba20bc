package types

// QueryType identifies the strategy that produced a search query.
type QueryType string

const (
	QueryPrimarySkills      QueryType = "primary_skills"
	QueryTechnologyStack    QueryType = "technology_stack"
	QueryResponsibility     QueryType = "responsibility"
	QueryExperienceLevel    QueryType = "experience_level"
	QueryIndustryContext    QueryType = "industry_context"
	QueryKeywordCombination QueryType = "keyword_combination"
)

// SearchQuery is one weighted query produced by the query optimizer.
// Rank and FinalPriority are assigned during the final ranking pass.
type SearchQuery struct {
	Query         string            `json:"query"`
	Type          QueryType         `json:"type"`
	Priority      float64           `json:"priority"`
	Rank          int               `json:"rank,omitempty"`
	FinalPriority float64           `json:"final_priority,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SearchHit is one aggregated search result. MatchedQueries records which
// queries contributed to the merged score.
type SearchHit struct {
	ExperienceID   string        `json:"experience_id"`
	Experience     *Experience   `json:"experience"`
	RawScore       float64       `json:"raw_score"`
	ScaledScore    float64       `json:"scaled_score"`
	FinalScore     float64       `json:"final_score"`
	MatchedQueries []SearchQuery `json:"matched_queries,omitempty"`
	MatchCount     int           `json:"match_count"`
}
