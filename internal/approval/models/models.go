// Package models holds the administrator-facing views of visit decisions.
package models

import (
	"time"

	visitmodels "gatepass/internal/visit/models"
)

// PendingVisit is one row of the approval queue.
type PendingVisit struct {
	VisitID     string    `json:"visit_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Mobile      string    `json:"mobile"`
	Purpose     string    `json:"purpose"`
	VisitAt     time.Time `json:"visit_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type PendingList struct {
	Visits []PendingVisit `json:"visits"`
	Total  int            `json:"total"`
}

// DecisionResponse reports the outcome of approve, reject and resend.
type DecisionResponse struct {
	VisitID             string     `json:"visit_id"`
	Status              string     `json:"status"`
	CredentialExpiresAt *time.Time `json:"credential_expires_at,omitempty"`
	Message             string     `json:"message"`
}

// Approval is the result of approving a visit or re-delivering its credential.
type Approval struct {
	Visit               *visitmodels.VisitRecord
	CredentialExpiresAt time.Time
}

func NewPendingList(records []*visitmodels.VisitRecord) PendingList {
	visits := make([]PendingVisit, 0, len(records))
	for _, r := range records {
		visits = append(visits, PendingVisit{
			VisitID:     r.ID.String(),
			Email:       r.Email,
			Name:        r.Name,
			Mobile:      r.Mobile,
			Purpose:     r.Purpose,
			VisitAt:     r.VisitAt,
			SubmittedAt: r.UpdatedAt,
		})
	}
	return PendingList{Visits: visits, Total: len(visits)}
}
