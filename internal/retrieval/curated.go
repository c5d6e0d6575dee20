package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/medassist/medassist/internal/knowledge"
)

// CuratedMedications answers medication questions from the curated
// condition table. A topic naming a condition lists all its medications; a
// topic naming a medication describes that one.
type CuratedMedications struct {
	kb *knowledge.Base
}

// NewCuratedMedications creates the curated medication provider.
func NewCuratedMedications(kb *knowledge.Base) *CuratedMedications {
	return &CuratedMedications{kb: kb}
}

// Name implements Provider.
func (c *CuratedMedications) Name() string { return "curated" }

// Attempt implements Provider.
func (c *CuratedMedications) Attempt(_ context.Context, topic string) (Answer, error) {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" {
		return Answer{}, ErrNoResult
	}

	if cond, ok := c.kb.MentionedCondition(t); ok {
		var b strings.Builder
		fmt.Fprintf(&b, "### Medications for %s\n\nHere are the recommended medications for %s:\n\n", title(cond.Name), cond.Name)
		for _, m := range cond.Medications {
			fmt.Fprintf(&b, "#### %s\n**Purpose**: %s\n**Dosage**: %s\n**Warning**: %s\n\n", m.Name, m.Purpose, m.Dosage, m.Warning)
		}
		return Answer{Body: b.String()}, nil
	}
	if m, cond, ok := c.kb.MatchMedication(t); ok {
		return Answer{Body: fmt.Sprintf(`### %s (for %s)

#### Purpose
%s

#### Recommended Dosage
%s

#### Important Warnings
%s
`, m.Name, title(cond), m.Purpose, m.Dosage, m.Warning)}, nil
	}
	return Answer{}, ErrNoResult
}
