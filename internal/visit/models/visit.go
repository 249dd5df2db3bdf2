package models

import (
	"fmt"
	"time"

	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Status is the approval status of a visit request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether an administrator decision may move s to target.
// Only pending records can be decided. Re-registration resets to pending outside
// of this check.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && (target == StatusApproved || target == StatusRejected)
}

// Presence is the gate state of a visitor.
type Presence string

const (
	PresenceOutside Presence = "outside"
	PresenceInside  Presence = "inside"
)

func (p Presence) IsValid() bool {
	return p == PresenceOutside || p == PresenceInside
}

// Event is one entry/exit pair on the ledger. ExitTime is nil while the visitor is inside.
type Event struct {
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
}

// IsOpen reports whether the event has no exit yet.
func (e Event) IsOpen() bool { return e.ExitTime == nil }

// Duration is the time spent inside. Zero while open.
func (e Event) Duration() time.Duration {
	if e.ExitTime == nil {
		return 0
	}
	return e.ExitTime.Sub(e.EntryTime)
}

// Registration is the visitor-supplied data that creates or replaces a visit record.
type Registration struct {
	Email   string
	Name    string
	Mobile  string
	Purpose string
	VisitAt time.Time
}

// VisitRecord is the authoritative record for one visitor email.
//
// Invariants:
//   - Email is unique across records
//   - Presence is INSIDE iff the last ledger event is open
//   - Every closed event has ExitTime >= EntryTime
//   - Only approved records accumulate ledger events
//   - Status moves pending → approved | rejected; re-registration resets to pending
type VisitRecord struct {
	ID        id.VisitID `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Mobile    string     `json:"mobile"`
	Purpose   string     `json:"purpose"`
	VisitAt   time.Time  `json:"visit_at"`
	Verified  bool       `json:"verified"`
	Status    Status     `json:"status"`
	Presence  Presence   `json:"presence"`
	Events    []Event    `json:"events"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewVisitRecord builds a fresh pending record from a verified registration.
func NewVisitRecord(visitID id.VisitID, reg Registration, now time.Time) *VisitRecord {
	r := &VisitRecord{ID: visitID, CreatedAt: now}
	r.ApplyRegistration(reg, now)
	return r
}

// ApplyRegistration replaces the mutable fields and resets the lifecycle.
// This is a full replacement, not a merge: the ledger is cleared too.
func (r *VisitRecord) ApplyRegistration(reg Registration, now time.Time) {
	r.Email = reg.Email
	r.Name = reg.Name
	r.Mobile = reg.Mobile
	r.Purpose = reg.Purpose
	r.VisitAt = reg.VisitAt
	r.Verified = true
	r.Status = StatusPending
	r.Presence = PresenceOutside
	r.Events = nil
	r.UpdatedAt = now
}

// IsVisited reports whether the visitor is currently inside.
func (r *VisitRecord) IsVisited() bool {
	return r.Presence == PresenceInside
}

func (r *VisitRecord) IsApproved() bool {
	return r.Status == StatusApproved
}

// LastEvent returns the most recent ledger event, if any.
func (r *VisitRecord) LastEvent() (Event, bool) {
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}

// CanApprove checks the pending → approved transition.
func (r *VisitRecord) CanApprove() error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("visit is %s, not pending", r.Status))
	}
	return nil
}

// ApplyApproval marks the record approved. Call CanApprove first.
func (r *VisitRecord) ApplyApproval(now time.Time) {
	r.Status = StatusApproved
	r.UpdatedAt = now
}

// CanReject checks the pending → rejected transition.
func (r *VisitRecord) CanReject() error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("visit is %s, not pending", r.Status))
	}
	return nil
}

// ApplyRejection marks the record rejected. Call CanReject first.
func (r *VisitRecord) ApplyRejection(now time.Time) {
	r.Status = StatusRejected
	r.UpdatedAt = now
}

// CanScan checks that the record may accept a gate event at all.
// A non-approved record is reported as an invalid credential so the
// gate never reveals the approval state.
func (r *VisitRecord) CanScan() error {
	if !r.IsApproved() {
		return dErrors.New(dErrors.CodeInvalidCredential, "credential is not valid for entry")
	}
	return nil
}

// CanRecordExit validates an exit against the ledger. The decision to exit
// is taken from Presence alone; this only checks the ledger agrees.
func (r *VisitRecord) CanRecordExit() error {
	last, ok := r.LastEvent()
	if !ok {
		return dErrors.New(dErrors.CodeCorruptState, "visitor is inside but the ledger is empty")
	}
	if !last.IsOpen() {
		return dErrors.New(dErrors.CodeAlreadyExited, "visitor has already exited")
	}
	return nil
}

// ApplyEntry opens a new ledger event.
func (r *VisitRecord) ApplyEntry(now time.Time) {
	r.Events = append(r.Events, Event{EntryTime: now})
	r.Presence = PresenceInside
	r.UpdatedAt = now
}

// ApplyExit closes the last ledger event. Call CanRecordExit first.
// An exit timestamp earlier than the entry (clock skew between gates) is
// clamped to the entry time.
func (r *VisitRecord) ApplyExit(now time.Time) time.Time {
	last := &r.Events[len(r.Events)-1]
	exit := now
	if exit.Before(last.EntryTime) {
		exit = last.EntryTime
	}
	last.ExitTime = &exit
	r.Presence = PresenceOutside
	r.UpdatedAt = now
	return exit
}

// CheckInvariants verifies the ledger and presence agree. Stores call it on
// every write and refuse to persist a record that fails.
func (r *VisitRecord) CheckInvariants() error {
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeCorruptState, fmt.Sprintf("unknown status %q", r.Status))
	}
	if !r.Presence.IsValid() {
		return dErrors.New(dErrors.CodeCorruptState, fmt.Sprintf("unknown presence %q", r.Presence))
	}
	if len(r.Events) > 0 && !r.IsApproved() {
		return dErrors.New(dErrors.CodeCorruptState, "ledger events on a record that is not approved")
	}
	for i, e := range r.Events {
		if e.ExitTime != nil && e.ExitTime.Before(e.EntryTime) {
			return dErrors.New(dErrors.CodeCorruptState, fmt.Sprintf("event %d exits before it enters", i))
		}
		if e.IsOpen() && i != len(r.Events)-1 {
			return dErrors.New(dErrors.CodeCorruptState, fmt.Sprintf("event %d is open but not last", i))
		}
	}
	last, ok := r.LastEvent()
	inside := ok && last.IsOpen()
	if inside != r.IsVisited() {
		return dErrors.New(dErrors.CodeCorruptState, "presence disagrees with the ledger")
	}
	return nil
}

// Clone returns a deep copy so callers never share ledger slices with a store.
func (r *VisitRecord) Clone() *VisitRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Events != nil {
		c.Events = make([]Event, len(r.Events))
		for i, e := range r.Events {
			c.Events[i] = e
			if e.ExitTime != nil {
				t := *e.ExitTime
				c.Events[i].ExitTime = &t
			}
		}
	}
	return &c
}
