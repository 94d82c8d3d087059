package resume

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	slugRe  = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	tokenRe = regexp.MustCompile(`[a-z0-9+#]+`)
)

// Slug derives the stable filesystem name for a job artifact. Other tooling
// relies on this scheme; do not change it without versioning the output dir.
func Slug(value string) string {
	cleaned := strings.ToLower(strings.Trim(slugRe.ReplaceAllString(value, "-"), "-"))
	runes := []rune(cleaned)
	if len(runes) > 60 {
		cleaned = strings.Trim(string(runes[:60]), "-")
	}
	if cleaned == "" {
		return "job"
	}
	return cleaned
}

// ExtractText returns the visible text of a scraped HTML fragment. Plain text
// passes through unchanged.
func ExtractText(html string) string {
	if !strings.Contains(html, "<") {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

// Tokens lower-cases the text and splits it into alphanumeric tokens,
// keeping + and # so entries like c++ and c# survive.
func Tokens(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(text) {
		set[tok] = struct{}{}
	}
	return set
}

var headingRe = regexp.MustCompile(`(?i)^(#+\s*)?[a-z &/]*skills?[a-z &/]*:?\s*$`)

// skillInventory extracts the skill list from the base resume: the entries
// under a heading mentioning "skills", split on commas and bullets. When no
// such section exists it falls back to comma-separated list lines anywhere in
// the document.
func skillInventory(base string) []string {
	lines := strings.Split(base, "\n")

	var section []string
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inSection {
			if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasSuffix(trimmed, ":") {
				break
			}
			section = append(section, trimmed)
			continue
		}
		if headingRe.MatchString(trimmed) {
			inSection = true
		}
	}

	if len(section) == 0 {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.Count(trimmed, ",") >= 2 {
				section = append(section, trimmed)
			}
		}
	}

	var inventory []string
	seen := make(map[string]struct{})
	for _, line := range section {
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		for _, part := range strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == '|' || r == '•'
		}) {
			entry := strings.TrimSpace(part)
			if entry == "" {
				continue
			}
			key := strings.ToLower(entry)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			inventory = append(inventory, entry)
		}
	}

	return inventory
}

// bulletLines returns up to limit bullet-point lines from the base resume,
// without the bullet markers.
func bulletLines(base string, limit int) []string {
	var bullets []string
	for _, line := range strings.Split(base, "\n") {
		trimmed := strings.TrimSpace(line)
		var content string
		switch {
		case strings.HasPrefix(trimmed, "- "):
			content = strings.TrimPrefix(trimmed, "- ")
		case strings.HasPrefix(trimmed, "* "):
			content = strings.TrimPrefix(trimmed, "* ")
		case strings.HasPrefix(trimmed, "• "):
			content = strings.TrimPrefix(trimmed, "• ")
		default:
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			bullets = append(bullets, content)
		}
		if len(bullets) == limit {
			break
		}
	}
	return bullets
}

// firstParagraphLine returns the first non-heading, non-bullet content line.
func firstParagraphLine(base string) string {
	for _, line := range strings.Split(base, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") ||
			strings.HasSuffix(trimmed, ":") {
			continue
		}
		return trimmed
	}
	return ""
}
