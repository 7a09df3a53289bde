package htmltext

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Hello world", "Hello world"},
		{"whitespace collapse", "  Hello \n\t world  ", "Hello world"},
		{"inline tags", "<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"line breaks separate words", "first<br>second", "first second"},
		{"divs separate words", "<div>one</div><div>two</div>", "one two"},
		{"entities decoded", "Ben &amp; Jerry&#39;s&nbsp;ice cream", "Ben & Jerry's ice cream"},
		{"script dropped", "say<script>alert(1)</script> this", "say this"},
		{"comment dropped", "a<!-- hidden -->b", "ab"},
		{"nested", "<div><span style=\"color:red\">Red</span> text</div>", "Red text"},
		{"only markup", "<br><div></div>", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   \t\n", true},
		{"<br>&nbsp;", true},
		{"x", false},
	}
	for _, tt := range tests {
		if got := IsBlank(tt.input); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
