// Package domain holds the typed identifiers shared across GatePass modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "gatepass/pkg/domain-errors"
)

// VisitID identifies a visit record. It is stable across re-registration of the same email.
type VisitID uuid.UUID

// AdminID identifies an administrator account.
type AdminID uuid.UUID

func NewVisitID() VisitID { return VisitID(uuid.New()) }
func NewAdminID() AdminID { return AdminID(uuid.New()) }

func (id VisitID) String() string { return uuid.UUID(id).String() }
func (id VisitID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) String() string { return uuid.UUID(id).String() }
func (id AdminID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseVisitID parses a visit id at a trust boundary.
func ParseVisitID(s string) (VisitID, error) {
	parsed, err := parseUUID(s, "visit ID")
	return VisitID(parsed), err
}

// ParseAdminID parses an admin id at a trust boundary.
func ParseAdminID(s string) (AdminID, error) {
	parsed, err := parseUUID(s, "admin ID")
	return AdminID(parsed), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return parsed, nil
}
