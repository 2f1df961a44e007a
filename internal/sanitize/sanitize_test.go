package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "selling my bike", "selling my bike"},
		{"simple markup", "<p>selling my <b>bike</b></p>", "selling my bike"},
		{"whitespace collapse", "  too   many\n\nspaces ", "too many spaces"},
		{"nested markup", "<div><ul><li>one</li><li>two</li></ul></div>", "onetwo"},
		{"script removed", "<p>hi</p><script>alert(1)</script>", "hi"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripHTML(tt.input))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 10))
	assert.Equal(t, "exactly ten", Snippet("exactly ten", 11))

	long := Snippet("<p>this description is definitely longer than twenty runes</p>", 20)
	assert.Equal(t, "this description is…", long)
}
