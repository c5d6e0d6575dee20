package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minNameLen = 2
	maxNameLen = 50
)

// medicationWords are rejected on their own but allowed inside a longer
// name such as "fever medicine".
var medicationWords = []string{"medicine", "medication", "pills"}

var fillerPhrases = []string{
	"tell me about", "what is", "remind me", "set a reminder",
	"view all", "show me", "at ", " for ", " on ", "?",
}

var bareTime = regexp.MustCompile(`^\d{1,2}(?::?\d{2})?\s*(?:am|pm)?$`)

// ValidMedicationName reports whether name looks like a medication rather
// than conversational filler or a time. Rejections are meant to be
// re-prompted, so the check leans permissive.
func ValidMedicationName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if l := utf8.RuneCountInString(n); l < minNameLen || l > maxNameLen {
		return false
	}
	for _, w := range medicationWords {
		if n == w {
			return false
		}
	}
	if !containsAny(n, medicationWords) && containsAny(n, fillerPhrases) {
		return false
	}
	return !bareTime.MatchString(n)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
