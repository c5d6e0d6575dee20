package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMedicationName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"metformin", true},
		{"Vitamin D", true},
		{"fever medicine", true},
		{"sleeping pills", true},
		{"fever medicine?", true},
		{"", false},
		{"   ", false},
		{"x", false},
		{strings.Repeat("a", 51), false},
		{strings.Repeat("a", 50), true},
		{"medicine", false},
		{" Medication ", false},
		{"pills", false},
		{"what is", false},
		{"tell me about aspirin", false},
		{"remind me", false},
		{"show me everything", false},
		{"aspirin?", false},
		{"aspirin at night", false},
		{"8:00 AM", false},
		{"8am", false},
		{"14:30", false},
		{"830", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidMedicationName(tt.name))
		})
	}
}

func TestValidMedicationNameIdempotent(t *testing.T) {
	for _, name := range []string{"metformin", "fever medicine", "Vitamin D", "insulin glargine"} {
		assert.True(t, ValidMedicationName(name))
		assert.True(t, ValidMedicationName(strings.TrimSpace(name)))
		assert.Equal(t, ValidMedicationName(name), ValidMedicationName(name))
	}
}
