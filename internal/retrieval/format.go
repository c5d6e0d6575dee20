package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/medassist/medassist/internal/knowledge"
)

const (
	specificOffer = "*Would you like me to set a reminder for any of these medications? Please specify which medication.*"
	genericOffer  = "*Would you like to set a reminder for any medications related to this condition? Please specify which medication.*"
)

var htmlTag = regexp.MustCompile(`<[^>]+>`)

var titleCaser = cases.Title(language.English)

// title renders a topic for a markdown header, e.g. "dengue fever" -> "Dengue Fever".
func title(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

func stripTags(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}

// medicationBlock lists the curated medications of a condition.
func medicationBlock(cond knowledge.Condition) string {
	var b strings.Builder
	b.WriteString("\n## Recommended Medications\n\n")
	for _, m := range cond.Medications {
		fmt.Fprintf(&b, "### %s\n", m.Name)
		fmt.Fprintf(&b, "**Purpose**: %s\n", m.Purpose)
		fmt.Fprintf(&b, "**Dosage**: %s\n", m.Dosage)
		fmt.Fprintf(&b, "**Warning**: %s\n\n", m.Warning)
	}
	b.WriteString(specificOffer)
	return b.String()
}

func diseaseExhausted(topic string) string {
	return fmt.Sprintf("I couldn't find specific information about %s. Please check the spelling or try a different condition.", topic)
}

func medicationExhausted(topic string) string {
	return fmt.Sprintf("❌ **No information found for %s in our database.**", topic)
}
