// Package models holds the visit activity query and the report built from it.
package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/validation"
)

// StatusFilter selects visit records by their derived ledger state.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterCompleted StatusFilter = "completed"
	FilterInside    StatusFilter = "inside"
	FilterScheduled StatusFilter = "scheduled"
)

func (f StatusFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterCompleted, FilterInside, FilterScheduled:
		return true
	}
	return false
}

// Row labels.
const (
	RowCompleted = "Completed"
	RowInside    = "Inside"
	RowScheduled = "Scheduled"
)

// Query is a parsed, validated events query. To is inclusive.
type Query struct {
	From   time.Time
	To     time.Time
	Status StatusFilter
	Search string
}

// QueryRequest is the raw query string of the events and report endpoints.
type QueryRequest struct {
	StartDate string
	EndDate   string
	Status    string
	Search    string
}

// Parse validates the request. A date-only end is extended to the last
// millisecond of that day.
func (r QueryRequest) Parse() (Query, error) {
	if strings.TrimSpace(r.StartDate) == "" || strings.TrimSpace(r.EndDate) == "" {
		return Query{}, dErrors.New(dErrors.CodeValidation, "start date and end date are required")
	}
	from, err := validation.ParseDateTime(r.StartDate)
	if err != nil {
		return Query{}, dErrors.New(dErrors.CodeValidation, "invalid start date")
	}
	to, err := validation.ParseDateTime(r.EndDate)
	if err != nil {
		return Query{}, dErrors.New(dErrors.CodeValidation, "invalid end date")
	}
	if isDateOnly(r.EndDate) {
		to = to.Add(24*time.Hour - time.Millisecond)
	}
	if from.After(to) {
		return Query{}, dErrors.New(dErrors.CodeValidation, "start date cannot be after end date")
	}

	status := StatusFilter(strings.ToLower(strings.TrimSpace(r.Status)))
	if status == "" {
		status = FilterAll
	}
	if !status.IsValid() {
		return Query{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status filter %q", r.Status))
	}

	search := strings.TrimSpace(r.Search)
	if len(search) > validation.MaxSearchLength {
		return Query{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("search must be at most %d characters", validation.MaxSearchLength))
	}
	return Query{From: from, To: to, Status: status, Search: search}, nil
}

func isDateOnly(s string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}

// Row is one line of the visit activity report: a single entry/exit event,
// or a visit that has not been entered yet.
type Row struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Mobile          string     `json:"mobile"`
	Purpose         string     `json:"purpose"`
	VisitAt         time.Time  `json:"visit_at"`
	EntryTime       *time.Time `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time"`
	Status          string     `json:"status"`
	DurationMinutes *int64     `json:"duration_minutes"`
}

type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Inside    int `json:"inside"`
	Scheduled int `json:"scheduled"`
}

// Report is the query result handed to renderers.
type Report struct {
	From        time.Time    `json:"start"`
	To          time.Time    `json:"end"`
	Status      StatusFilter `json:"status"`
	Search      string       `json:"search,omitempty"`
	Rows        []Row        `json:"rows"`
	Summary     Summary      `json:"summary"`
	GeneratedAt time.Time    `json:"generated_at"`
}
