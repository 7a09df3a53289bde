package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCitation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Citation
		wantOK bool
	}{
		{
			name:   "multi page",
			input:  "FUR V1 P12,13",
			want:   Citation{Document: "FUR", Volume: "V1", Pages: []string{"P12", "P13"}},
			wantOK: true,
		},
		{
			name:   "single page",
			input:  "HP3 V2 P7",
			want:   Citation{Document: "HP3", Volume: "V2", Pages: []string{"P7"}},
			wantOK: true,
		},
		{
			name:   "surrounding space and repeated P",
			input:  "  FUR V1 P12, P14,12 ",
			want:   Citation{Document: "FUR", Volume: "V1", Pages: []string{"P12", "P14"}},
			wantOK: true,
		},
		{name: "not a citation", input: "not a citation"},
		{name: "lowercase document", input: "fur V1 P12"},
		{name: "missing volume", input: "FUR P12"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCitation(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !tt.wantOK, got.IsZero())
		})
	}
}

func TestCitationString(t *testing.T) {
	c, ok := ParseCitation("FUR V1 P12,P13")
	assert.True(t, ok)
	assert.Equal(t, "FUR V1 P12,13", c.String())
	assert.Equal(t, "", Citation{}.String())
}
