package dialogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/medassist/medassist/internal/domain"
)

const (
	welcomeReply = `## Welcome to MedAssist! 👋

I'm your medication assistant! What medication would you like me to remind you about?

You can:
- Ask about specific medications (e.g., "Tell me about Ibuprofen")
- Ask about conditions (e.g., "Tell me about diabetes")
- Set medication reminders (e.g., "Remind me to take Metformin at 8:00 AM")
- View all your medication reminders (e.g., "Show all my reminders")`

	startOverReply      = "Something went wrong. Let's start over. How can I help you?"
	askMedicationReply  = "Sure! What medication would you like to set a reminder for?"
	badTimeReply        = "I couldn't understand the time. Please specify a time in the format like '8:00 AM' or '14:30'."
	expectNameReply     = "Sorry, I didn't quite understand that. Could you please clarify? I was expecting a medication name."
	expectTimeReply     = "Sorry, I didn't quite understand that. Could you please clarify? I was expecting a time for the reminder (e.g., 8:00 AM)."
	emptyTopicReply     = "Which condition or medication would you like to know about?"
	saveFailedReply     = "Sorry, I couldn't save your reminder right now. Please try again."
	summaryFailedReply  = "Sorry, I couldn't load your reminders right now. Please try again."
	noRemindersReply    = `### You don't have any medication reminders set up yet.

Would you like to set up a reminder for a medication now? Just tell me the name of the medication.

You can also visit the [Reminders Dashboard](/reminders) to manage your reminders visually.`
)

var titleCaser = cases.Title(language.English)

func askTimeReply(name string) string {
	return fmt.Sprintf("Got it! What time should I remind you to take **%s**? (e.g., 8:00 AM)", name)
}

func invalidNameReply(name string, first bool) string {
	if first {
		return fmt.Sprintf("Sorry, '%s' doesn't seem like a valid medication name. Could you please specify the medication you want a reminder for?", name)
	}
	return fmt.Sprintf("Sorry, '%s' doesn't seem like a valid medication name. Please provide the correct medication name.", name)
}

func confirmReply(disease string) string {
	if disease == "" {
		disease = "the condition"
	}
	return fmt.Sprintf("Okay! Which medication related to **%s** would you like to set a reminder for?", disease)
}

func reminderSetReply(name, at string) string {
	return fmt.Sprintf(`## ✅ Reminder Set Successfully!
Your reminder for **%s** has been set for **%s** daily.
Would you like to set another reminder or ask about a medication?`, name, at)
}

// summaryReply groups reminders by condition in first-seen order, followed
// by the ones not linked to a condition.
func summaryReply(reminders []*domain.Reminder) string {
	if len(reminders) == 0 {
		return noRemindersReply
	}

	var (
		order   []string
		grouped = make(map[string][]*domain.Reminder)
		other   []*domain.Reminder
	)
	for _, r := range reminders {
		if r.Condition == "" {
			other = append(other, r)
			continue
		}
		if _, ok := grouped[r.Condition]; !ok {
			order = append(order, r.Condition)
		}
		grouped[r.Condition] = append(grouped[r.Condition], r)
	}

	var b strings.Builder
	b.WriteString("## Your Medication Reminders\n\nYou can visit the [Reminders Dashboard](/reminders) to see countdowns and manage your reminders.\n\n")
	for _, cond := range order {
		fmt.Fprintf(&b, "### For %s\n", titleCaser.String(cond))
		writeReminderList(&b, grouped[cond])
		b.WriteString("\n")
	}
	if len(other) > 0 {
		if len(order) > 0 {
			b.WriteString("### Other Medications\n")
		}
		writeReminderList(&b, other)
	}
	b.WriteString("\n*You can ask for details about any specific medication by name.*")
	return b.String()
}

func writeReminderList(b *strings.Builder, reminders []*domain.Reminder) {
	for i, r := range reminders {
		at := r.Time
		if !r.HasTime() {
			at = "No time set"
		}
		fmt.Fprintf(b, "%d. **%s** - Daily at **%s**\n", i+1, r.Name, at)
	}
}
