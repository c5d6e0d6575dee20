// Package knowledge loads the curated medical data shared by the classifier
// and the retrieval chain.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var embedded []byte

// Medication is one curated medication entry for a condition.
type Medication struct {
	Name    string `yaml:"name"`
	Purpose string `yaml:"purpose"`
	Dosage  string `yaml:"dosage"`
	Warning string `yaml:"warning"`
}

// Condition links a canonical condition name to its curated medications.
type Condition struct {
	Name        string       `yaml:"condition"`
	Medications []Medication `yaml:"medications"`
}

type document struct {
	Diseases             []string          `yaml:"diseases"`
	DiseaseKeywords      []string          `yaml:"disease_keywords"`
	ClinicalSuffixes     []string          `yaml:"clinical_suffixes"`
	ConditionMedications []Condition       `yaml:"condition_medications"`
	BackupAnswers        map[string]string `yaml:"backup_answers"`
}

// Base is the immutable curated data set. Accessors return copies so callers
// cannot mutate shared state.
type Base struct {
	diseases   []string
	keywords   []string
	suffixes   []string
	conditions []Condition
	backups    map[string]string
}

// Default parses the embedded knowledge document.
func Default() (*Base, error) {
	return Parse(embedded)
}

// LoadFile parses a knowledge document from disk. An empty path falls back
// to the embedded document.
func LoadFile(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Base from a YAML document.
func Parse(data []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge document: %w", err)
	}

	b := &Base{
		diseases: lowerAll(doc.Diseases),
		keywords: lowerAll(doc.DiseaseKeywords),
		suffixes: lowerAll(doc.ClinicalSuffixes),
		backups:  make(map[string]string, len(doc.BackupAnswers)),
	}

	seen := make(map[string]bool, len(doc.ConditionMedications))
	for _, c := range doc.ConditionMedications {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			return nil, fmt.Errorf("condition entry without a name")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate condition %q", name)
		}
		seen[name] = true
		meds := make([]Medication, len(c.Medications))
		copy(meds, c.Medications)
		b.conditions = append(b.conditions, Condition{Name: name, Medications: meds})
	}

	for k, v := range doc.BackupAnswers {
		b.backups[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	return b, nil
}

// Diseases returns the curated disease names, lowercased.
func (b *Base) Diseases() []string { return append([]string(nil), b.diseases...) }

// DiseaseKeywords returns substrings that mark a topic as a disease.
func (b *Base) DiseaseKeywords() []string { return append([]string(nil), b.keywords...) }

// ClinicalSuffixes returns word endings that mark a topic as a disease.
func (b *Base) ClinicalSuffixes() []string { return append([]string(nil), b.suffixes...) }

// Conditions returns the curated condition table in document order.
func (b *Base) Conditions() []Condition {
	out := make([]Condition, len(b.conditions))
	for i, c := range b.conditions {
		out[i] = Condition{Name: c.Name, Medications: append([]Medication(nil), c.Medications...)}
	}
	return out
}

// MatchCondition finds the first curated condition whose name contains the
// topic or is contained by it. Matching is case-insensitive.
func (b *Base) MatchCondition(topic string) (Condition, bool) {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" {
		return Condition{}, false
	}
	for _, c := range b.conditions {
		if strings.Contains(t, c.Name) || strings.Contains(c.Name, t) {
			return Condition{Name: c.Name, Medications: append([]Medication(nil), c.Medications...)}, true
		}
	}
	return Condition{}, false
}

// MentionedCondition finds the first curated condition whose name appears in
// the topic. Unlike MatchCondition a fragment of a name does not count.
func (b *Base) MentionedCondition(topic string) (Condition, bool) {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" {
		return Condition{}, false
	}
	for _, c := range b.conditions {
		if strings.Contains(t, c.Name) {
			return Condition{Name: c.Name, Medications: append([]Medication(nil), c.Medications...)}, true
		}
	}
	return Condition{}, false
}

// MatchMedication finds the first curated medication named in the topic,
// case-insensitively, along with the condition it is listed under.
func (b *Base) MatchMedication(topic string) (Medication, string, bool) {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" {
		return Medication{}, "", false
	}
	for _, c := range b.conditions {
		for _, m := range c.Medications {
			if strings.Contains(t, strings.ToLower(m.Name)) {
				return m, c.Name, true
			}
		}
	}
	return Medication{}, "", false
}

// BackupAnswer returns the pre-written answer for an exact lowercase key.
func (b *Base) BackupAnswer(topic string) (string, bool) {
	v, ok := b.backups[strings.ToLower(strings.TrimSpace(topic))]
	return v, ok
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
