package queryopt

import (
	"regexp"
	"sort"
	"strings"
)

type skillCategory struct {
	name    string
	members map[string]bool
}

func newCategory(name string, skills ...string) skillCategory {
	members := make(map[string]bool, len(skills))
	for _, s := range skills {
		members[s] = true
	}
	return skillCategory{name: name, members: members}
}

// skillCategories groups well-known technical skills. Order is fixed so that
// query generation stays deterministic.
var skillCategories = []skillCategory{
	newCategory("programming_languages",
		"python", "java", "javascript", "typescript", "c++", "c#", "go",
		"rust", "php", "ruby", "swift", "kotlin", "scala", "r"),
	newCategory("web_frameworks",
		"react", "angular", "vue", "node.js", "express", "django",
		"flask", "spring", "laravel", "rails", "next.js", "nuxt"),
	newCategory("databases",
		"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
		"cassandra", "dynamodb", "sqlite", "oracle", "sqlserver"),
	newCategory("cloud_platforms",
		"aws", "azure", "gcp", "google cloud", "amazon web services",
		"microsoft azure", "digital ocean", "heroku"),
	newCategory("devops_tools",
		"docker", "kubernetes", "terraform", "jenkins", "gitlab",
		"github actions", "ci/cd", "ansible", "chef", "puppet"),
	newCategory("data_science",
		"pandas", "numpy", "tensorflow", "pytorch", "scikit-learn",
		"spark", "hadoop", "tableau", "power bi", "jupyter"),
}

type industryEntry struct {
	industry string
	keywords []string
}

var industryTable = []industryEntry{
	{"fintech", []string{"finance", "fintech", "banking", "payment", "trading", "investment"}},
	{"healthcare", []string{"health", "medical", "healthcare", "clinical", "patient", "pharma"}},
	{"ecommerce", []string{"ecommerce", "retail", "marketplace", "shopping", "commerce"}},
	{"gaming", []string{"gaming", "game", "entertainment", "mobile", "console"}},
	{"enterprise", []string{"enterprise", "b2b", "saas", "platform", "business"}},
	{"media", []string{"media", "content", "publishing", "streaming", "video"}},
	{"security", []string{"security", "cybersecurity", "privacy", "compliance", "audit"}},
}

// Keyword scoring weights. Frequency counts each occurrence in the full
// text; the remaining boosts reward terms that look technical or specific.
const (
	keywordFrequencyWeight = 0.1
	technicalTermBoost     = 0.5
	categorySkillBoost     = 0.3
	longTermBoost          = 0.2
)

var technicalTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2,}\b`), // acronyms
	regexp.MustCompile(`^\w+\.\w+`),    // dotted names (Node.js)
	regexp.MustCompile(`^\w+[-_]\w+`),  // hyphenated or underscored names
}

type keywordScore struct {
	keyword string
	score   float64
}

// scoreKeywords ranks keywords by frequency in the text plus technical-term
// heuristics, highest score first. Ties keep input order.
func scoreKeywords(keywords []string, fullText string) []keywordScore {
	textLower := strings.ToLower(fullText)

	scored := make([]keywordScore, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		keywordLower := strings.ToLower(keyword)

		score := float64(strings.Count(textLower, keywordLower)) * keywordFrequencyWeight
		if isTechnicalTerm(keyword) {
			score += technicalTermBoost
		}
		if inAnyCategory(keywordLower) {
			score += categorySkillBoost
		}
		if len(keyword) > 6 {
			score += longTermBoost
		}
		scored = append(scored, keywordScore{keyword: keyword, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

func isTechnicalTerm(term string) bool {
	if inAnyCategory(strings.ToLower(term)) {
		return true
	}
	for _, pattern := range technicalTermPatterns {
		if pattern.MatchString(term) {
			return true
		}
	}
	return false
}

func inAnyCategory(skillLower string) bool {
	for _, cat := range skillCategories {
		if cat.members[skillLower] {
			return true
		}
	}
	return false
}
