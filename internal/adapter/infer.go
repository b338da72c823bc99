package adapter

import (
	"html"
	"regexp"
	"strings"

	"github.com/WyZzYx/Jobsight/internal/model"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles Greenhouse's double-encoding;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

var onsiteRegex = regexp.MustCompile(`(?i)\bon[- ]?site\b`)

// inferWorkArrangement guesses the arrangement from free text. Hybrid wins over
// remote because hybrid postings usually mention remote days.
func inferWorkArrangement(texts ...string) model.WorkArrangement {
	text := strings.ToLower(strings.Join(texts, " "))
	switch {
	case strings.Contains(text, "hybrid"):
		return model.WorkHybrid
	case strings.Contains(text, "remote"):
		return model.WorkRemote
	case onsiteRegex.MatchString(text):
		return model.WorkOnsite
	default:
		return model.WorkUnknown
	}
}

// workArrangementFromLabel maps a provider's explicit workplace label.
// Unknown labels fall back to inferring from text.
func workArrangementFromLabel(label string, texts ...string) model.WorkArrangement {
	switch strings.ToLower(strings.ReplaceAll(label, "-", "")) {
	case "remote":
		return model.WorkRemote
	case "hybrid":
		return model.WorkHybrid
	case "onsite", "on site", "in office":
		return model.WorkOnsite
	}
	return inferWorkArrangement(texts...)
}

var (
	juniorRegex = regexp.MustCompile(`(?i)\b(junior|jr\.?|intern|graduate|entry[- ]level)\b`)
	seniorRegex = regexp.MustCompile(`(?i)\b(senior|sr\.?|lead|principal|staff)\b`)
)

// inferSeniority classifies a title. Anything not clearly junior or senior is MID.
func inferSeniority(title string) model.Seniority {
	switch {
	case juniorRegex.MatchString(title):
		return model.SeniorityJunior
	case seniorRegex.MatchString(title):
		return model.SenioritySenior
	default:
		return model.SeniorityMid
	}
}

type skillPattern struct {
	name string
	re   *regexp.Regexp
}

var knownSkills = compileSkills(
	"java", "spring", "spring boot", "kotlin", "golang", "python", "typescript",
	"javascript", "react", "docker", "kubernetes", "terraform", "aws", "gcp",
	"azure", "postgresql", "mysql", "mongodb", "redis", "kafka", "rabbitmq",
	"jenkins", "git", "rest api", "graphql", "grpc",
)

func compileSkills(names ...string) []skillPattern {
	out := make([]skillPattern, 0, len(names))
	for _, n := range names {
		out = append(out, skillPattern{
			name: n,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(n) + `\b`),
		})
	}
	return out
}

// inferSkills returns the known skills mentioned in any of texts.
func inferSkills(texts ...string) []string {
	text := strings.Join(texts, " ")
	var skills []string
	for _, s := range knownSkills {
		if s.re.MatchString(text) {
			skills = append(skills, s.name)
		}
	}
	return skills
}
