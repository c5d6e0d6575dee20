// Package classify decides whether a free-text topic names a disease or a
// medication.
package classify

import (
	"strings"

	"github.com/medassist/medassist/internal/knowledge"
)

// Classifier is a rule-based topic classifier over curated data.
type Classifier struct {
	contains []string
	suffixes []string
}

// New builds a Classifier from the knowledge base.
func New(kb *knowledge.Base) *Classifier {
	c := &Classifier{suffixes: kb.ClinicalSuffixes()}
	c.contains = append(c.contains, kb.Diseases()...)
	c.contains = append(c.contains, kb.DiseaseKeywords()...)
	for _, cond := range kb.Conditions() {
		c.contains = append(c.contains, cond.Name)
	}
	return c
}

// IsDisease reports whether topic looks like a disease or condition. Anything
// else is treated as a medication.
func (c *Classifier) IsDisease(topic string) bool {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" {
		return false
	}
	for _, s := range c.contains {
		if strings.Contains(t, s) {
			return true
		}
	}
	for _, s := range c.suffixes {
		if strings.HasSuffix(t, s) {
			return true
		}
	}
	return false
}
