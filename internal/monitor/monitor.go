// Package monitor holds pure transcript scanners. No state is retained
// between calls; alert de-duplication is the caller's concern.
package monitor

import "strings"

// RiskTerms is the fixed sensitive-term list. Matching is case-insensitive
// substring, first hit wins.
var RiskTerms = []string{
	"password", "credit card", "ssn", "social security", "bank account", "pin", "confidential", "secret",
}

var (
	positiveWords = map[string]struct{}{}
	negativeWords = map[string]struct{}{}
)

func init() {
	for _, w := range []string{
		"win", "great", "good", "awesome", "excellent", "success", "achieved", "proud",
		"happy", "excited", "support", "helpful", "wonderful", "clarity", "progress",
	} {
		positiveWords[w] = struct{}{}
	}
	for _, w := range []string{
		"challenge", "problem", "stuck", "difficult", "hard", "struggle", "issue",
		"concern", "bad", "frustrated", "confused", "anxious",
	} {
		negativeWords[w] = struct{}{}
	}
}

// DetectRiskTerm scans one text fragment and returns the first matched
// sensitive term, or false when the fragment is clean.
func DetectRiskTerm(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range RiskTerms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

// SentimentScore counts positive minus negative keyword hits in the
// fragment. Punctuation adjacent to a word does not hide it.
func SentimentScore(text string) int {
	score := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		clean := strings.Trim(word, ".,!?")
		if _, ok := positiveWords[clean]; ok {
			score++
		}
		if _, ok := negativeWords[clean]; ok {
			score--
		}
	}
	return score
}
