package audit

import (
	"context"
	"time"

	id "gatepass/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers the visitor lifecycle: who was let in, and on whose approval.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers denied scans, revoked credentials and admin sign-in activity.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	VisitID   id.VisitID
	Subject   string // visitor or admin email
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is the administrator who performed the action, when there is one.
	ActorID string
	// Device is the scanner or browser the request came from.
	Device string
}

type AuditEvent string

const (
	// Visit lifecycle
	EventVisitRegistered AuditEvent = "visit_registered"
	EventVisitApproved   AuditEvent = "visit_approved"
	EventVisitRejected   AuditEvent = "visit_rejected"

	// Credentials
	EventCredentialIssued      AuditEvent = "credential_issued"
	EventCredentialDeactivated AuditEvent = "credential_deactivated"

	// Gate
	EventGateEntry      AuditEvent = "gate_entry"
	EventGateExit       AuditEvent = "gate_exit"
	EventGateScanDenied AuditEvent = "gate_scan_denied"

	// Admin accounts
	EventAdminRegistered  AuditEvent = "admin_registered"
	EventAdminLogin       AuditEvent = "admin_login"
	EventAdminLoginDenied AuditEvent = "admin_login_denied"
	EventAdminLogout      AuditEvent = "admin_logout"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVisitApproved: CategoryCompliance,
	EventVisitRejected: CategoryCompliance,
	EventGateEntry:     CategoryCompliance,
	EventGateExit:      CategoryCompliance,

	EventGateScanDenied:        CategorySecurity,
	EventCredentialDeactivated: CategorySecurity,
	EventAdminRegistered:       CategorySecurity,
	EventAdminLoginDenied:      CategorySecurity,
	EventAdminLogout:           CategorySecurity,

	EventVisitRegistered:  CategoryOperations,
	EventCredentialIssued: CategoryOperations,
	EventAdminLogin:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVisit(ctx context.Context, visitID id.VisitID) ([]Event, error)
}
