package importers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastNonBlank(t *testing.T) {
	cases := []struct {
		name     string
		values   []string
		expected string
	}{
		{"letzter belegter wert gewinnt", []string{"Journal Article", "Book Chapter", ""}, "Book Chapter"},
		{"leere werte werden übersprungen", []string{"Journal Article", "", "  "}, "Journal Article"},
		{"sentinel wird übersprungen", []string{"Journal Article", "Other"}, "Journal Article"},
		{"sentinel case-insensitiv", []string{"Journal Article", "OTHER"}, "Journal Article"},
		{"nur sentinel fällt auf sentinel zurück", []string{"", "Other"}, "Other"},
		{"alles leer", []string{"", "  ", ""}, ""},
		{"leere liste", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, LastNonBlank(tc.values, "Other"))
		})
	}
}
