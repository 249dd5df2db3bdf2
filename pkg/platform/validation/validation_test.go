package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatepass/pkg/domain-errors"
)

type registration struct {
	Email   string `json:"email" validate:"required,email"`
	Mobile  string `json:"mobile" validate:"required,mobile10"`
	VisitAt string `json:"visit_at" validate:"required,visittime"`
	Purpose string `json:"purpose" validate:"max=10"`
}

func valid() registration {
	return registration{Email: "a@x.com", Mobile: "9876543210", VisitAt: "2025-03-01T10:00", Purpose: "meeting"}
}

func TestStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		require.NoError(t, Struct(valid()))
	})

	cases := []struct {
		name    string
		mutate  func(*registration)
		message string
	}{
		{"missing email", func(r *registration) { r.Email = "" }, "email is required"},
		{"bad email", func(r *registration) { r.Email = "nope" }, "email must be a valid email address"},
		{"short mobile", func(r *registration) { r.Mobile = "12345" }, "mobile must be a 10 digit number"},
		{"alpha mobile", func(r *registration) { r.Mobile = "98765abcde" }, "mobile must be a 10 digit number"},
		{"bad date", func(r *registration) { r.VisitAt = "tomorrow" }, "visit_at must be a valid date"},
		{"long purpose", func(r *registration) { r.Purpose = "a very long purpose" }, "purpose must be at most 10 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid()
			tc.mutate(&r)
			err := Struct(r)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.message, dErrors.Message(err))
		})
	}
}

func TestParseDateTime(t *testing.T) {
	t.Run("accepts supported layouts", func(t *testing.T) {
		for _, in := range []string{
			"2025-03-01T10:00:00Z",
			"2025-03-01T10:00:00+05:30",
			"2025-03-01T10:00:00",
			"2025-03-01T10:00",
			"2025-03-01 10:00",
			"2025-03-01",
		} {
			_, err := ParseDateTime(in)
			assert.NoError(t, err, in)
		}
	})

	t.Run("zoneless values are UTC", func(t *testing.T) {
		got, err := ParseDateTime("2025-03-01T10:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), got)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"", "   ", "03/01/2025", "2025-13-01"} {
			_, err := ParseDateTime(in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), in)
		}
	})
}
