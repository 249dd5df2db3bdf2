package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a@x.com", Normalize("  A@X.com "))
	assert.Equal(t, "", Normalize("   "))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, address, want string
	}{
		{"Ada Lovelace", "a@x.com", "Ada Lovelace"},
		{"", "jane.doe@x.com", "Jane Doe"},
		{"", "sam@x.com", "Sam"},
		{"   ", "first_middle-last@x.com", "First Last"},
		{"", "...@x.com", "Visitor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.name, tt.address), tt.address)
	}
}
