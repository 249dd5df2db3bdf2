package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatepass/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	valid := "550e8400-e29b-41d4-a716-446655440000"
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"lowercase uuid", valid, true},
		{"uppercase uuid", strings.ToUpper(valid), true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"nil uuid", uuid.Nil.String(), false},
		{"not a uuid", "visit-42", false},
		{"sql in path segment", "'; DROP TABLE visit_records;--", false},
		{"path traversal", "../../etc/passwd", false},
		{"embedded null byte", "550e8400\x00-e29b-41d4-a716-446655440000", false},
		{"oversized", strings.Repeat("f", 512), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visitID, visitErr := ParseVisitID(tt.input)
			adminID, adminErr := ParseAdminID(tt.input)
			if !tt.ok {
				assert.True(t, dErrors.HasCode(visitErr, dErrors.CodeInvalidInput))
				assert.True(t, dErrors.HasCode(adminErr, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, visitErr)
			require.NoError(t, adminErr)
			assert.Equal(t, valid, visitID.String())
			assert.Equal(t, valid, adminID.String())
		})
	}
}

func TestParseErrorsNameTheField(t *testing.T) {
	_, err := ParseVisitID("")
	assert.Equal(t, "visit ID is required", dErrors.Message(err))
	_, err = ParseAdminID("nope")
	assert.Equal(t, "invalid admin ID", dErrors.Message(err))
}

func TestNewIDs(t *testing.T) {
	a, b := NewVisitID(), NewVisitID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
	assert.False(t, NewAdminID().IsNil())
	assert.True(t, VisitID{}.IsNil())
	assert.True(t, AdminID{}.IsNil())
}
