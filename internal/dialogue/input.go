package dialogue

import (
	"strings"

	"github.com/medassist/medassist/internal/domain"
)

// input is the class of an incoming message.
type input int

const (
	inputBlank input = iota
	inputViewAll
	inputConfirm
	inputReminder
	inputTopic
	inputOther
)

func (i input) String() string {
	switch i {
	case inputBlank:
		return "blank"
	case inputViewAll:
		return "view_all"
	case inputConfirm:
		return "confirm"
	case inputReminder:
		return "reminder"
	case inputTopic:
		return "topic"
	default:
		return "other"
	}
}

var (
	viewAllPhrases  = []string{"view all", "all medication", "all reminder", "all my medication", "all my reminder", "show reminder", "see my"}
	reminderPhrases = []string{"remind me", "set a new medication reminder"}
	topicPrefixes   = []string{"tell me about ", "what is "}
)

// classify maps a message to its input class. Earlier classes win.
func classify(msg string, sc domain.SessionContext) input {
	lower := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case lower == "":
		return inputBlank
	case containsAny(lower, viewAllPhrases):
		return inputViewAll
	case lower == "yes" && sc.AwaitingReminderConfirmation:
		return inputConfirm
	case containsAny(lower, reminderPhrases):
		return inputReminder
	case hasTopicPrefix(lower):
		return inputTopic
	default:
		return inputOther
	}
}

func hasTopicPrefix(lower string) bool {
	for _, p := range topicPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// topicFrom returns the lowercased subject of a "tell me about X" or
// "what is X" question, or "" when msg is not one.
func topicFrom(msg string) string {
	lower := strings.ToLower(strings.TrimSpace(msg))
	for _, p := range topicPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(strings.TrimRight(strings.TrimPrefix(lower, p), "?.! "))
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
