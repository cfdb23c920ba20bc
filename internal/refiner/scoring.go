package refiner

import (
	"strings"

	"github.com/jonathan/experience-matcher/internal/types"
)

// Local relevance weights, used when the AI omits a score or refinement is
// disabled.
const (
	skillOverlapWeight  = 0.5
	keywordHitWeight    = 0.3
	categoryMatchWeight = 0.2
)

// RelevanceScore computes a heuristic [0,1] relevance between an experience
// and a job description. Empty denominators contribute zero rather than
// erroring.
func RelevanceScore(exp *types.Experience, job *types.JobDescription) float64 {
	if job == nil {
		return 0.0
	}

	skillScore := overlapRatio(exp.Skills, job.SkillsMentioned)

	keywordScore := 0.0
	if len(job.ExtractedKeywords) > 0 {
		expText := strings.ToLower(exp.Text)
		matches := 0
		for _, keyword := range job.ExtractedKeywords {
			if strings.Contains(expText, strings.ToLower(keyword)) {
				matches++
			}
		}
		keywordScore = float64(matches) / float64(len(job.ExtractedKeywords))
	}

	categoryScore := overlapRatio(exp.Categories, job.Categories)

	score := skillScore*skillOverlapWeight +
		keywordScore*keywordHitWeight +
		categoryScore*categoryMatchWeight
	return clamp01(score)
}

// overlapRatio returns |have ∩ want| / |want|, case-insensitively, or 0 when
// want is empty.
func overlapRatio(have, want []string) float64 {
	if len(want) == 0 {
		return 0.0
	}
	haveSet := make(map[string]bool, len(have))
	for _, item := range have {
		haveSet[strings.ToLower(item)] = true
	}
	wantSet := make(map[string]bool, len(want))
	for _, item := range want {
		wantSet[strings.ToLower(item)] = true
	}

	overlap := 0
	for item := range wantSet {
		if haveSet[item] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(wantSet))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
