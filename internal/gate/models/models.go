// Package models holds the gate scan request and result.
package models

import (
	"strings"
	"time"

	"gatepass/pkg/platform/validation"
)

// EventKind is the transition a scan performed.
type EventKind string

const (
	EventEntry EventKind = "entry"
	EventExit  EventKind = "exit"
)

// ScanRequest carries the token read from a visitor's QR code.
type ScanRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

func (r *ScanRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
}

func (r *ScanRequest) Validate() error {
	return validation.Struct(r)
}

type Visitor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ScanResult reports the ledger event a scan recorded.
type ScanResult struct {
	Event   EventKind `json:"event"`
	Time    time.Time `json:"time"`
	Visitor Visitor   `json:"visitor"`
}
