// Package models holds the gate credential issued to approved visitors.
package models

import (
	"time"

	"github.com/google/uuid"

	id "gatepass/pkg/domain"
)

// Credential is the opaque token encoded in a visitor's QR code. At most one
// credential per visit is active at a time.
type Credential struct {
	Token     string
	VisitID   id.VisitID
	IssuedAt  time.Time
	ExpiresAt time.Time
	IsActive  bool
}

// NewCredential creates an active credential with a random UUIDv4 token.
func NewCredential(visitID id.VisitID, now time.Time, ttl time.Duration) *Credential {
	return &Credential{
		Token:     uuid.NewString(),
		VisitID:   visitID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		IsActive:  true,
	}
}

// IsExpired reports whether the credential lifetime has elapsed at now.
func (c *Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsUsable reports whether the credential can still open the gate.
func (c *Credential) IsUsable(now time.Time) bool {
	return c.IsActive && !c.IsExpired(now)
}

// IssueResponse is returned to administrators after a credential is emailed.
type IssueResponse struct {
	VisitID   string    `json:"visit_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"credential_expires_at"`
	Message   string    `json:"message"`
}
