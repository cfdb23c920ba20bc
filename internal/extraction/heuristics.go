package extraction

import (
	"regexp"
	"strings"

	"github.com/jonathan/experience-matcher/internal/types"
)

// Per-list caps keep heuristic output bounded before AI enhancement.
const (
	maxRequirements     = 10
	maxResponsibilities = 10
	maxSkills           = 15
	maxKeywords         = 10
)

var (
	titleLineRe   = regexp.MustCompile(`(?i)(?:job title|position|role):\s*([^\n]+)`)
	titleDashRe   = regexp.MustCompile(`\s*[-–—]\s*.*$`)
	titlePrefixRe = regexp.MustCompile(`(?i)^(?:job title|position|role):\s*`)

	companyLineRe  = regexp.MustCompile(`(?i)(?:company|organization|employer):\s*([^\n]+)`)
	companyAtRe    = regexp.MustCompile(`(?:at|@)\s+([A-Z][^,\n.]+?)(?:\s+is|\s+seeks|\s*,)`)
	companyVerbRe  = regexp.MustCompile(`([A-Z][^,\n.]+?)\s+is\s+(?:seeking|looking|hiring)`)
	companyJoinRe  = regexp.MustCompile(`Join\s+([A-Z][^,\n.]+?)(?:\s+as|\s+in|\s*,)`)
	companyCorpRe  = regexp.MustCompile(`(?i)\s*(?:Inc\.?|LLC\.?|Corp\.?|Ltd\.?|Limited)\.?\s*$`)
	domainPrefixRe = regexp.MustCompile(`^www\.`)
	domainSuffixRe = regexp.MustCompile(`\.(com|org|net|io|co)(\.[a-z]{2})?$`)

	requirementsHeaderRe = regexp.MustCompile(
		`(?i)^(?:requirements?|qualifications?|what (?:we'?re looking for|you'?ll need)|must[- ]haves?|required|essential|you (?:should|must) have|you need)\b[:\-]?\s*$`)
	responsibilitiesHeaderRe = regexp.MustCompile(
		`(?i)^(?:responsibilit(?:y|ies)|duties|what you'?ll do|your role|you(?:'ll| will)|day[- ]to[- ]day|daily)\b[:\-]?\s*$`)
	anyHeaderRe = regexp.MustCompile(`(?i)^[a-z][a-z' \-]{2,40}:?\s*$`)

	bulletRe = regexp.MustCompile(`^\s*(?:[•\-*]|\d+[.)]|[a-z]\))\s+`)

	acronymRe = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	dotJSRe   = regexp.MustCompile(`(?i)\b\w+\.js\b`)
	sqlLikeRe = regexp.MustCompile(`(?i)\b\w+SQL\b`)
	dbLikeRe  = regexp.MustCompile(`(?i)\b\w+DB\b`)

	keywordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:experience|expertise|knowledge|proficiency|familiarity)\s+(?:with|in)\s+([^,\n.]+)`),
		regexp.MustCompile(`(?i)\b(?:skilled|proficient|expert)\s+(?:in|with)\s+([^,\n.]+)`),
		regexp.MustCompile(`(?i)\b(?:using|leveraging|implementing|working\s+with)\s+([^,\n.]+)`),
		regexp.MustCompile(`(?i)\b(?:minimum|at\s+least)\s+(\d+\+?\s+years?\s+[^,\n.]+)`),
	}

	spaceRe = regexp.MustCompile(`\s+`)
)

// knownSkills is the flat technical vocabulary scanned for exact mentions.
var knownSkills = []string{
	"python", "java", "javascript", "typescript", "c++", "c#", "go", "rust",
	"php", "ruby", "swift", "kotlin", "scala", "matlab", "sql",
	"react", "angular", "vue", "html", "css", "node.js", "express",
	"django", "flask", "spring", "laravel", "rails",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"cassandra", "dynamodb", "sqlite",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"jenkins", "gitlab", "github", "ci/cd", "devops",
	"pandas", "numpy", "tensorflow", "pytorch", "scikit-learn",
	"spark", "hadoop", "tableau", "looker",
	"git", "linux", "unix", "rest", "graphql", "microservices",
	"machine learning", "artificial intelligence",
}

var genericTitleTerms = []string{
	"job", "position", "opening", "opportunity", "career",
	"apply now", "hiring", "wanted", "vacancy",
}

var genericCompanyTerms = map[string]bool{
	"company": true, "corporation": true, "business": true, "enterprise": true,
	"organization": true, "firm": true, "group": true, "team": true,
}

// heuristicParse builds a JobDescription from text alone, without AI.
func heuristicParse(text, pageTitle, domain, url string) *types.JobDescription {
	return &types.JobDescription{
		URL:               url,
		Title:             extractTitle(pageTitle, text),
		Company:           extractCompany(text, domain),
		FullText:          text,
		Summary:           summarize(text),
		Requirements:      extractSection(text, requirementsHeaderRe, maxRequirements),
		Responsibilities:  extractSection(text, responsibilitiesHeaderRe, maxResponsibilities),
		SkillsMentioned:   extractSkills(text),
		ExtractedKeywords: extractKeywords(text),
	}
}

// summarize takes the opening of the posting as a stand-in summary until AI
// enhancement supplies a real one.
func summarize(text string) string {
	const maxSummary = 500
	flat := spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if len(flat) <= maxSummary {
		return flat
	}
	cut := flat[:maxSummary]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}

func extractTitle(pageTitle, text string) string {
	if title := strings.TrimSpace(pageTitle); title != "" && !isGenericTitle(title) {
		return cleanTitle(title)
	}
	if m := titleLineRe.FindStringSubmatch(text); m != nil {
		if candidate := strings.TrimSpace(m[1]); candidate != "" && !isGenericTitle(candidate) {
			return cleanTitle(candidate)
		}
	}
	// First non-empty line as a last resort.
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if !isGenericTitle(line) && len(line) < 120 {
				return cleanTitle(line)
			}
			break
		}
	}
	return "Unknown Position"
}

func isGenericTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, term := range genericTitleTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func cleanTitle(title string) string {
	title = titlePrefixRe.ReplaceAllString(title, "")
	title = titleDashRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func extractCompany(text, domain string) string {
	if domain != "" {
		if name := companyFromDomain(domain); name != "" {
			return name
		}
	}

	for _, re := range []*regexp.Regexp{companyLineRe, companyAtRe, companyVerbRe, companyJoinRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if isValidCompanyName(candidate) {
				return cleanCompanyName(candidate)
			}
		}
	}
	return "Unknown Company"
}

func isValidCompanyName(name string) bool {
	if len(name) < 2 || len(name) > 100 {
		return false
	}
	return !genericCompanyTerms[strings.ToLower(name)]
}

func cleanCompanyName(name string) string {
	return strings.TrimSpace(companyCorpRe.ReplaceAllString(name, ""))
}

func companyFromDomain(domain string) string {
	domain = domainPrefixRe.ReplaceAllString(strings.ToLower(domain), "")
	domain = domainSuffixRe.ReplaceAllString(domain, "")
	parts := strings.Split(domain, ".")
	// Job boards host postings for other companies, skip their domains.
	boardHosts := map[string]bool{
		"greenhouse": true, "lever": true, "myworkdayjobs": true,
		"linkedin": true, "indeed": true, "boards": true, "jobs": true,
	}
	for _, part := range parts {
		if part == "" || boardHosts[part] {
			continue
		}
		return strings.ToUpper(part[:1]) + part[1:]
	}
	return ""
}

// extractSection scans for a section header line and collects the bullet
// lines that follow it, stopping at the next header.
func extractSection(text string, header *regexp.Regexp, limit int) []string {
	var items []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if header.MatchString(trimmed) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if trimmed == "" {
			continue
		}
		if bulletRe.MatchString(line) {
			item := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
			if len(item) > 10 {
				items = append(items, item)
			}
			continue
		}
		if anyHeaderRe.MatchString(trimmed) {
			inSection = false
		}
	}
	items = types.DedupeFold(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func extractSkills(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, skill := range knownSkills {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}

	for _, acronym := range acronymRe.FindAllString(text, -1) {
		if len(acronym) <= 6 {
			found = append(found, strings.ToLower(acronym))
		}
	}
	for _, re := range []*regexp.Regexp{dotJSRe, sqlLikeRe, dbLikeRe} {
		for _, m := range re.FindAllString(text, -1) {
			found = append(found, strings.ToLower(m))
		}
	}

	found = types.DedupeFold(found)
	if len(found) > maxSkills {
		found = found[:maxSkills]
	}
	return found
}

func extractKeywords(text string) []string {
	var keywords []string
	for _, re := range keywordPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			cleaned := spaceRe.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if len(cleaned) > 3 && len(cleaned) < 50 {
				keywords = append(keywords, cleaned)
			}
		}
	}
	keywords = types.DedupeFold(keywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
