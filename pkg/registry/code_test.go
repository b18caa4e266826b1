package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProjectCode(t *testing.T) {
	valid := []string{"abc", "my-project", "my_project", "docs2", "a-1"}
	for _, code := range valid {
		assert.NoError(t, ValidateProjectCode(code), "code %q", code)
	}

	invalid := []string{"", "ab", "My-Project", "my project", "docs!", "a.b.c"}
	for _, code := range invalid {
		err := ValidateProjectCode(code)
		assert.ErrorIs(t, err, ErrInvalidProjectCode, "code %q", code)
	}
}

func TestProjectCodeFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Documentation", "my-documentation"},
		{"docshelf", "docshelf"},
		{"API (v2)", "api--v2-"},
		{"under_score-kept", "under_score-kept"},
		{"Caps And Spaces!", "caps-and-spaces-"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProjectCodeFromTitle(tt.title), "title %q", tt.title)
	}
}
