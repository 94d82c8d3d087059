package qa

import "strings"

// Prompts matching these patterns concern legal or eligibility facts. Without
// an explicit configured default the resolver must hand them to a human, never
// to the generator. Configuration can extend this list but not shrink it.
var builtinSensitivePatterns = []string{
	"authorized to work",
	"work authorization",
	"legally authorized",
	"sponsorship",
	"visa",
	"citizen",
	"gpa",
	"grade point average",
	"disability",
	"veteran",
	"race",
	"ethnicity",
	"gender",
	"felony",
	"criminal",
	"convicted",
	"security clearance",
}

func sensitivePatterns(extra []string) []string {
	patterns := make([]string, 0, len(builtinSensitivePatterns)+len(extra))
	patterns = append(patterns, builtinSensitivePatterns...)
	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
