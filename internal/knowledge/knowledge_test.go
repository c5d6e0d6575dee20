package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	assert.Contains(t, b.Diseases(), "tuberculosis")
	assert.Contains(t, b.DiseaseKeywords(), "syndrome")
	assert.Contains(t, b.ClinicalSuffixes(), "algia")

	names := make([]string, 0)
	for _, c := range b.Conditions() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"dengue", "malaria", "mononucleosis", "covid", "syphilis"}, names)
}

func TestMatchCondition(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	tests := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"dengue", "dengue", true},
		{"Dengue Fever", "dengue", true},
		{"covid", "covid", true},
		{"cov", "covid", true},
		{"ibuprofen", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			c, ok := b.MatchCondition(tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, c.Name)
		})
	}
}

func TestMentionedCondition(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	c, ok := b.MentionedCondition("medications for dengue")
	require.True(t, ok)
	assert.Equal(t, "dengue", c.Name)
	assert.NotEmpty(t, c.Medications)

	_, ok = b.MentionedCondition("cov")
	assert.False(t, ok)
}

func TestMatchMedication(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	m, cond, ok := b.MatchMedication("doxycycline")
	require.True(t, ok)
	assert.Equal(t, "Doxycycline", m.Name)
	assert.Equal(t, "syphilis", cond)

	m, _, ok = b.MatchMedication("what is DOXYCYCLINE used for")
	require.True(t, ok)
	assert.Equal(t, "Doxycycline", m.Name)

	_, _, ok = b.MatchMedication("doxy")
	assert.False(t, ok)

	_, _, ok = b.MatchMedication("metformin")
	assert.False(t, ok)
}

func TestBackupAnswer(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	body, ok := b.BackupAnswer("Gastroenteritis")
	require.True(t, ok)
	assert.Contains(t, body, "Information About Gastroenteritis")

	_, ok = b.BackupAnswer("gastro")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	conds := b.Conditions()
	conds[0].Name = "changed"
	conds[0].Medications[0].Name = "changed"

	again := b.Conditions()
	assert.Equal(t, "dengue", again[0].Name)
	assert.Equal(t, "Paracetamol", again[0].Medications[0].Name)
}

func TestParseRejectsDuplicateConditions(t *testing.T) {
	doc := []byte("condition_medications:\n  - condition: flu\n  - condition: FLU\n")
	_, err := Parse(doc)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("diseases: [Scurvy]\nbackup_answers:\n  scurvy: vitamin c\n"), 0o600))

	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"scurvy"}, b.Diseases())
	body, ok := b.BackupAnswer("scurvy")
	assert.True(t, ok)
	assert.Equal(t, "vitamin c", body)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
