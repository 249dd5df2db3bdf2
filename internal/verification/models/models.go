package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gatepass/pkg/email"
	"gatepass/pkg/platform/validation"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// OneTimeCode proves control of an email address during registration.
// Several unconsumed codes may coexist for one email until each expires.
type OneTimeCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is past its lifetime at now.
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NewOneTimeCode issues a uniformly random code for email.
func NewOneTimeCode(email string, now time.Time, ttl time.Duration) (*OneTimeCode, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	return &OneTimeCode{Email: email, Code: code, IssuedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

// GenerateCode returns a zero-padded 6 digit code from crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// SendCodeRequest starts a registration. Fields are validated up front so a
// code is only issued for a registration that could succeed.
type SendCodeRequest struct {
	Email   string `json:"email" validate:"required,max=254,email"`
	Name    string `json:"name" validate:"required,max=100"`
	Mobile  string `json:"mobile" validate:"required,mobile10"`
	Purpose string `json:"purpose" validate:"required,max=500"`
	VisitAt string `json:"visit_at" validate:"required,visittime"`
}

func (r *SendCodeRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.VisitAt = strings.TrimSpace(r.VisitAt)
}

func (r *SendCodeRequest) Validate() error {
	return validation.Struct(r)
}

// VerifyRequest completes a registration with the emailed code.
type VerifyRequest struct {
	SendCodeRequest
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyRequest) Normalize() {
	r.SendCodeRequest.Normalize()
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyRequest) Validate() error {
	return validation.Struct(r)
}

// SendCodeResponse acknowledges a code email. The code itself is never returned.
type SendCodeResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegistrationResponse describes the registered visit.
type RegistrationResponse struct {
	VisitID string    `json:"visit_id"`
	Email   string    `json:"email"`
	Status  string    `json:"status"`
	VisitAt time.Time `json:"visit_at"`
	Message string    `json:"message"`
}
