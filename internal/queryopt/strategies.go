package queryopt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/experience-matcher/internal/types"
)

// Strategy priorities. Responsibility queries decay from their base by 0.1
// per responsibility; everything else is fixed.
const (
	priorityPrimarySkills      = 1.0
	priorityTechnologyStack    = 0.9
	priorityResponsibilityBase = 0.8
	priorityExperienceLevel    = 0.7
	priorityIndustryContext    = 0.6
	priorityKeywords           = 0.5
)

var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(develop|design|implement|build|create|manage|lead|coordinate)\s+([^,\n.]+)`),
	regexp.MustCompile(`(?i)\b(work\s+with|collaborate\s+with|partner\s+with)\s+([^,\n.]+)`),
	regexp.MustCompile(`(?i)\b(responsible\s+for|accountable\s+for)\s+([^,\n.]+)`),
	regexp.MustCompile(`(?i)\b(analyze|optimize|improve|enhance)\s+([^,\n.]+)`),
}

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+\+?\s*years?\s*(?:of\s*)?(?:experience|exp))`),
	regexp.MustCompile(`(?i)(senior|lead|principal|staff|junior|entry[- ]?level)`),
	regexp.MustCompile(`(?i)(expert|proficient|experienced|skilled|beginner)`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// primarySkillsQuery joins the top five mentioned skills into one query.
func primarySkillsQuery(job *types.JobDescription) (types.SearchQuery, bool) {
	if len(job.SkillsMentioned) == 0 {
		return types.SearchQuery{}, false
	}
	skills := job.TopSkills(5)
	return types.SearchQuery{
		Query:    strings.Join(skills, " "),
		Type:     types.QueryPrimarySkills,
		Priority: priorityPrimarySkills,
		Metadata: map[string]string{
			"skills_count": fmt.Sprintf("%d", len(skills)),
			"description":  "Primary skills: " + strings.Join(skills, ", "),
		},
	}, true
}

// technologyQueries groups mentioned skills into fixed technical categories;
// any category with at least two matched skills yields one query over its
// top three skills.
func technologyQueries(job *types.JobDescription) []types.SearchQuery {
	var queries []types.SearchQuery
	for _, cat := range skillCategories {
		var matched []string
		for _, skill := range job.SkillsMentioned {
			if cat.members[strings.ToLower(skill)] {
				matched = append(matched, skill)
			}
		}
		if len(matched) < 2 {
			continue
		}
		top := matched
		if len(top) > 3 {
			top = top[:3]
		}
		queries = append(queries, types.SearchQuery{
			Query:    strings.Join(top, " "),
			Type:     types.QueryTechnologyStack,
			Priority: priorityTechnologyStack,
			Metadata: map[string]string{
				"category":     cat.name,
				"skills_count": fmt.Sprintf("%d", len(matched)),
			},
		})
	}
	return queries
}

// responsibilityQueries extracts action phrases from the first three
// responsibilities. Priority decays by 0.1 per responsibility.
func responsibilityQueries(job *types.JobDescription) []types.SearchQuery {
	var queries []types.SearchQuery
	responsibilities := job.Responsibilities
	if len(responsibilities) > 3 {
		responsibilities = responsibilities[:3]
	}
	for i, responsibility := range responsibilities {
		phrases := extractActionPhrases(responsibility)
		if len(phrases) == 0 {
			continue
		}
		if len(phrases) > 4 {
			phrases = phrases[:4]
		}
		queries = append(queries, types.SearchQuery{
			Query:    strings.Join(phrases, " "),
			Type:     types.QueryResponsibility,
			Priority: priorityResponsibilityBase - float64(i)*0.1,
			Metadata: map[string]string{
				"responsibility": truncate(responsibility, 100),
			},
		})
	}
	return queries
}

// experienceLevelQueries pairs detected seniority indicators with the top
// three skills. Skipped entirely when no indicator or no skills are present.
func experienceLevelQueries(job *types.JobDescription) []types.SearchQuery {
	indicators := extractExperienceIndicators(job.FullText)
	if len(indicators) > 2 {
		indicators = indicators[:2]
	}
	topSkills := job.TopSkills(3)
	if len(topSkills) == 0 {
		return nil
	}

	var queries []types.SearchQuery
	for _, indicator := range indicators {
		queries = append(queries, types.SearchQuery{
			Query:    indicator + " " + strings.Join(topSkills, " "),
			Type:     types.QueryExperienceLevel,
			Priority: priorityExperienceLevel,
			Metadata: map[string]string{
				"experience_indicator": indicator,
			},
		})
	}
	return queries
}

// industryQueries infers up to two industry tags from the company, title,
// and summary, and combines them with the top three skills.
func industryQueries(job *types.JobDescription) []types.SearchQuery {
	industries := inferIndustries(job)
	if len(industries) == 0 {
		return nil
	}
	topSkills := job.TopSkills(3)
	if len(topSkills) == 0 {
		return nil
	}
	return []types.SearchQuery{{
		Query:    strings.Join(industries, " ") + " " + strings.Join(topSkills, " "),
		Type:     types.QueryIndustryContext,
		Priority: priorityIndustryContext,
		Metadata: map[string]string{
			"industry_terms": strings.Join(industries, ","),
		},
	}}
}

// keywordQueries scores all keywords and skills against the full text, takes
// the top six, and chunks them into groups of three.
func keywordQueries(job *types.JobDescription) []types.SearchQuery {
	all := make([]string, 0, len(job.ExtractedKeywords)+len(job.SkillsMentioned))
	all = append(all, job.ExtractedKeywords...)
	all = append(all, job.SkillsMentioned...)

	scored := scoreKeywords(all, job.FullText)
	if len(scored) > 6 {
		scored = scored[:6]
	}
	top := make([]string, len(scored))
	for i, ks := range scored {
		top[i] = ks.keyword
	}
	if len(top) < 3 {
		return nil
	}

	var queries []types.SearchQuery
	for i := 0; i < len(top); i += 3 {
		end := i + 3
		if end > len(top) {
			end = len(top)
		}
		group := top[i:end]
		if len(group) < 2 {
			continue
		}
		queries = append(queries, types.SearchQuery{
			Query:    strings.Join(group, " "),
			Type:     types.QueryKeywordCombination,
			Priority: priorityKeywords,
			Metadata: map[string]string{
				"keywords": strings.Join(group, ","),
			},
		})
	}
	return queries
}

// extractActionPhrases pulls verb+object phrases out of a responsibility
// sentence. Phrases are whitespace-collapsed, capped at 50 characters, and
// kept only when longer than 10 characters.
func extractActionPhrases(text string) []string {
	var phrases []string
	for _, pattern := range actionPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			phrase := whitespaceRe.ReplaceAllString(strings.TrimSpace(match), " ")
			if len(phrase) > 50 {
				phrase = phrase[:50]
			}
			if len(phrase) > 10 {
				phrases = append(phrases, phrase)
			}
		}
	}
	if len(phrases) > 5 {
		phrases = phrases[:5]
	}
	return phrases
}

// extractExperienceIndicators finds years-of-experience and seniority tokens.
func extractExperienceIndicators(text string) []string {
	var indicators []string
	for _, pattern := range experiencePatterns {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			indicators = append(indicators, strings.ToLower(groups[1]))
		}
	}

	unique := make([]string, 0, len(indicators))
	seen := make(map[string]bool)
	for _, indicator := range indicators {
		if len(indicator) <= 2 || seen[indicator] {
			continue
		}
		seen[indicator] = true
		unique = append(unique, indicator)
	}
	if len(unique) > 3 {
		unique = unique[:3]
	}
	return unique
}

// inferIndustries matches the fixed industry keyword table against the
// company, title, and summary; at most two tags are returned.
func inferIndustries(job *types.JobDescription) []string {
	haystack := strings.ToLower(job.Company + " " + job.Title + " " + job.Summary)

	var detected []string
	for _, entry := range industryTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(haystack, keyword) {
				detected = append(detected, entry.industry)
				break
			}
		}
	}
	if len(detected) > 2 {
		detected = detected[:2]
	}
	return detected
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
