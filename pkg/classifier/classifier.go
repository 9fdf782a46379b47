package classifier

import (
	"fmt"
	"regexp"

	"followersweep/pkg/models"
)

// yearSuffix matches a human naming convention: an underscore followed by a
// plausible year (dave_2024, anna_1998). Such suffixes are not treated as a
// bot-like digit run by the primary rule.
var yearSuffix = regexp.MustCompile(`_(19|20)\d{2}$`)

// Pattern is a single named detection rule. The rule set is ordered and the
// first match wins.
type Pattern struct {
	Name  string
	Match func(username string) bool
}

// Classifier maps usernames to bot verdicts. It is pure: the same username
// against the same pattern list always produces the same Classification.
type Classifier struct {
	patterns []Pattern
}

// DefaultSuspiciousPatterns are optional secondary rules, evaluated only
// after the trailing-digit rule. Sourced from observed bot account naming.
var DefaultSuspiciousPatterns = []string{
	`^[a-z]+\d{8}$`,
	`^\w+_\d{5,}$`,
	`^\d{8,}$`,
	`^(?i)[0-9a-f]{12,}$`,
	`^[a-zA-Z]\d{6,}$`,
}

// New builds a classifier whose primary rule flags usernames ending in a run
// of at least minTrailingDigits consecutive digits. extraPatterns are
// compiled in order and evaluated after the primary rule.
func New(minTrailingDigits int, extraPatterns []string) (*Classifier, error) {
	if minTrailingDigits < 1 {
		return nil, fmt.Errorf("min trailing digits must be at least 1, got %d", minTrailingDigits)
	}

	digitRun := regexp.MustCompile(fmt.Sprintf(`\d{%d,}$`, minTrailingDigits))
	patterns := []Pattern{{
		Name: fmt.Sprintf("ends with %d+ consecutive digits", minTrailingDigits),
		Match: func(username string) bool {
			// A year-like "_NNNN" suffix is a human convention, not a
			// bot-generated digit run.
			if yearSuffix.MatchString(username) {
				return false
			}
			return digitRun.MatchString(username)
		},
	}}

	for _, p := range extraPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid detection pattern %q: %w", p, err)
		}
		patterns = append(patterns, Pattern{Name: p, Match: re.MatchString})
	}

	return &Classifier{patterns: patterns}, nil
}

// Classify returns the verdict for a username. The first matching pattern
// is authoritative; no match means not a suspected bot.
func (c *Classifier) Classify(username string) models.Classification {
	for _, p := range c.patterns {
		if p.Match(username) {
			return models.Classification{
				SuspectedBot:   true,
				MatchedPattern: p.Name,
			}
		}
	}
	return models.Classification{}
}

// Patterns returns the names of the configured rules in evaluation order.
func (c *Classifier) Patterns() []string {
	names := make([]string, len(c.patterns))
	for i, p := range c.patterns {
		names[i] = p.Name
	}
	return names
}
