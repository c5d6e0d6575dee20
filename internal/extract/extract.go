// Package extract pulls reminder entities (a medication name candidate and a
// time of day) out of free-form chat utterances.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medassist/medassist/internal/domain"
)

var (
	// reminderPhrase only fires on "remind me to take ..." and "remind me
	// about ...". "remind me ibuprofen at 8am" yields no candidate.
	reminderPhrase = regexp.MustCompile(`(?i)remind\s+me\s+(?:to\s+take|about)\s+(.*?)(?:\s+(?:at|for|on)\s+\d|\s*$)`)

	// prepositionTime matches "at 8", "for 8:30pm", "on 14:00".
	prepositionTime = regexp.MustCompile(`(?i)\b(?:at|for|on)\s+(\d{1,2})(?::?(\d{2}))?(?:\s*(am|pm)\b)?`)

	// looseTime matches a time anywhere in the utterance.
	looseTime = regexp.MustCompile(`(?i)(\d{1,2})(?::?(\d{2}))?(?:\s*(am|pm)\b)?`)

	spaces = regexp.MustCompile(`\s+`)
)

// Entities is what a single utterance yielded. Empty fields mean nothing was found.
type Entities struct {
	// Candidate is an unvalidated medication name.
	Candidate string
	// Time is normalized to "H:MM AM|PM".
	Time string
}

// HasCandidate reports whether a name candidate was found.
func (e Entities) HasCandidate() bool { return e.Candidate != "" }

// HasTime reports whether a time was found.
func (e Entities) HasTime() bool { return e.Time != "" }

// Extract returns the entities an utterance carries for the given dialogue step.
//
// On StepIdle a candidate needs an explicit reminder phrase and a time needs a
// leading preposition. On StepAwaitingMedicationName the whole utterance minus
// any time phrase is the candidate. On StepAwaitingTime only a time is looked
// for, anywhere in the utterance.
func Extract(utterance string, step domain.Step) Entities {
	switch step {
	case domain.StepAwaitingMedicationName:
		return Entities{
			Candidate: strings.TrimSpace(spaces.ReplaceAllString(prepositionTime.ReplaceAllString(utterance, " "), " ")),
			Time:      firstTime(prepositionTime, utterance),
		}
	case domain.StepAwaitingTime:
		return Entities{Time: firstTime(looseTime, utterance)}
	default:
		var e Entities
		if m := reminderPhrase.FindStringSubmatch(utterance); m != nil {
			e.Candidate = strings.TrimSpace(m[1])
		}
		e.Time = firstTime(prepositionTime, utterance)
		return e
	}
}

// Time returns the first time-of-day found anywhere in s, or "".
func Time(s string) string {
	return firstTime(looseTime, s)
}

func firstTime(re *regexp.Regexp, s string) string {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if t, ok := normalizeTime(m[1], m[2], m[3]); ok {
			return t
		}
	}
	return ""
}

// normalizeTime renders hour, minute and meridiem as "H:MM AM|PM". A missing
// minute is 00 and a missing meridiem is AM, except that hours 13-23 are read
// as a 24-hour clock and hour 0 as midnight.
func normalizeTime(hour, minute, meridiem string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return "", false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil {
			return "", false
		}
	}
	if h > 23 || m > 59 {
		return "", false
	}

	meridiem = strings.ToUpper(meridiem)
	switch {
	case meridiem != "" && h > 12:
		return "", false
	case h == 0:
		h = 12
		if meridiem == "" {
			meridiem = "AM"
		}
	case meridiem == "" && h > 12:
		h -= 12
		meridiem = "PM"
	case meridiem == "":
		meridiem = "AM"
	}
	return fmt.Sprintf("%d:%02d %s", h, m, meridiem), true
}
