// Package observability provides formatted CLI output for match runs.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/experience-matcher/internal/db"
	"github.com/jonathan/experience-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJobDescription outputs a summary of the extracted job description.
func (p *Printer) PrintJobDescription(job *types.JobDescription) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	if job.InferredIndustry != "" {
		sb.WriteString(fmt.Sprintf("Industry: %s\n", job.InferredIndustry))
	}

	if len(job.SkillsMentioned) > 0 {
		sb.WriteString("\nSkills:\n")
		count := min(len(job.SkillsMentioned), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", job.SkillsMentioned[i]))
		}
		if len(job.SkillsMentioned) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.SkillsMentioned)-maxItemsToShow))
		}
	}

	if len(job.Requirements) > 0 {
		sb.WriteString("\nRequirements:\n")
		count := min(len(job.Requirements), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", job.Requirements[i]))
		}
		if len(job.Requirements) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.Requirements)-3))
		}
	}

	p.printBox("EXTRACTED JOB DESCRIPTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQueries outputs the generated search queries with their priorities.
func (p *Printer) PrintQueries(queries []types.SearchQuery) {
	if len(queries) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total queries: %d\n\n", len(queries)))
	for _, query := range queries {
		sb.WriteString(fmt.Sprintf("#%d  [%s]\n", query.Rank, query.Type))
		text := query.Query
		if len(text) > 44 {
			text = text[:41] + "..."
		}
		sb.WriteString(fmt.Sprintf("    %q\n", text))
		sb.WriteString(fmt.Sprintf("    priority %.2f, final %.3f\n", query.Priority, query.FinalPriority))
	}

	p.printBox("SEARCH QUERIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchResult outputs the refined experiences and overall score.
func (p *Printer) PrintMatchResult(result *types.JobMatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall match score: %.2f\n", result.OverallMatchScore))
	sb.WriteString(fmt.Sprintf("Experiences matched: %d\n", len(result.RefinedExperiences)))

	if len(result.AggregatedSkills) > 0 {
		skills := strings.Join(result.AggregatedSkills, ", ")
		if len(skills) > 48 {
			skills = skills[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("Skills: %s\n", skills))
	}
	sb.WriteString("\n")

	count := min(len(result.RefinedExperiences), maxItemsToShow)
	for i := 0; i < count; i++ {
		record := result.RefinedExperiences[i]
		sb.WriteString(fmt.Sprintf("#%d  %s", i+1, record.Company))
		if record.Role != "" {
			sb.WriteString(fmt.Sprintf(" — %s", record.Role))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    relevance %.2f, confidence %.2f\n",
			record.RelevanceScore, record.ConfidenceScore))
		if len(record.Accomplishments) > 0 {
			first := record.Accomplishments[0]
			if len(first) > 48 {
				first = first[:45] + "..."
			}
			sb.WriteString(fmt.Sprintf("    %s\n", first))
		}
	}
	if len(result.RefinedExperiences) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(result.RefinedExperiences)-maxItemsToShow))
	}

	p.printBox("MATCH RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs the matcher counters.
func (p *Printer) PrintStats(stats types.MatcherStats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Jobs processed:       %d\n", stats.JobsProcessed))
	sb.WriteString(fmt.Sprintf("Successful matches:   %d\n", stats.SuccessfulMatches))
	sb.WriteString(fmt.Sprintf("Failed matches:       %d\n", stats.FailedMatches))
	sb.WriteString(fmt.Sprintf("Cache hits:           %d\n", stats.CacheHits))
	sb.WriteString(fmt.Sprintf("Experiences found:    %d\n", stats.TotalExperiencesFound))
	sb.WriteString(fmt.Sprintf("Experiences refined:  %d\n", stats.TotalExperiencesRefined))
	sb.WriteString(fmt.Sprintf("Success rate:         %.0f%%", stats.SuccessRate*100))

	p.printBox("MATCHING STATS", sb.String())
}

// PrintExperiences outputs stored experiences.
func (p *Printer) PrintExperiences(experiences []types.Experience) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", len(experiences)))
	for _, exp := range experiences {
		sb.WriteString(fmt.Sprintf("%s  %s", exp.ID, exp.Company))
		if exp.Role != "" {
			sb.WriteString(fmt.Sprintf(" — %s", exp.Role))
		}
		sb.WriteString("\n")
		text := exp.Text
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("    %s\n", text))
	}

	p.printBox("STORED EXPERIENCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRuns outputs recorded match runs.
func (p *Printer) PrintRuns(runs []db.MatchRun) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", len(runs)))
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%s  [%s]\n", run.ID, run.Status))
		sb.WriteString(fmt.Sprintf("    %s at %s\n", run.Title, run.Company))
		sb.WriteString(fmt.Sprintf("    %s\n", run.CreatedAt.Format("2006-01-02 15:04")))
	}

	p.printBox("MATCH RUNS", strings.TrimSuffix(sb.String(), "\n"))
}
