// Package service answers read-only queries over visit activity.
package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gatepass/internal/report/models"
	visitmodels "gatepass/internal/visit/models"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requestcontext"
)

// VisitStore lists records whose visit date or any entry falls in [from, to].
// Returned records are copies; the service never writes them back.
type VisitStore interface {
	ListInRange(ctx context.Context, from, to time.Time) ([]*visitmodels.VisitRecord, error)
}

type Service struct {
	visits VisitStore
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(visits VisitStore, opts ...Option) *Service {
	s := &Service{visits: visits, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryEvents returns the visit records that overlap the range and match the
// status filter and search term, ordered by visit date.
func (s *Service) QueryEvents(ctx context.Context, q models.Query) ([]*visitmodels.VisitRecord, error) {
	records, err := s.visits.ListInRange(ctx, q.From, q.To)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query visits")
	}
	search := strings.ToLower(q.Search)
	out := make([]*visitmodels.VisitRecord, 0, len(records))
	for _, r := range records {
		if matchesStatus(r, q.Status) && matchesSearch(r, search) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *visitmodels.VisitRecord) int {
		return a.VisitAt.Compare(b.VisitAt)
	})
	return out, nil
}

// BuildReport flattens the matching records into one row per in-range event,
// plus a row for each in-range visit that has no events yet.
func (s *Service) BuildReport(ctx context.Context, q models.Query) (*models.Report, error) {
	records, err := s.QueryEvents(ctx, q)
	if err != nil {
		return nil, err
	}

	var rows []models.Row
	for _, r := range records {
		rows = append(rows, rowsFor(r, q.From, q.To)...)
	}
	slices.SortStableFunc(rows, func(a, b models.Row) int {
		if c := a.VisitAt.Compare(b.VisitAt); c != 0 {
			return c
		}
		if a.EntryTime != nil && b.EntryTime != nil {
			return a.EntryTime.Compare(*b.EntryTime)
		}
		return 0
	})

	report := &models.Report{
		From:        q.From,
		To:          q.To,
		Status:      q.Status,
		Search:      q.Search,
		Rows:        rows,
		GeneratedAt: requestcontext.Now(ctx),
	}
	if report.Rows == nil {
		report.Rows = []models.Row{}
	}
	report.Summary = summarize(report.Rows)
	s.logger.DebugContext(ctx, "report built",
		"request_id", requestcontext.RequestID(ctx),
		"rows", len(rows),
	)
	return report, nil
}

func matchesStatus(r *visitmodels.VisitRecord, f models.StatusFilter) bool {
	switch f {
	case models.FilterCompleted:
		return slices.ContainsFunc(r.Events, func(e visitmodels.Event) bool { return !e.IsOpen() })
	case models.FilterInside:
		return slices.ContainsFunc(r.Events, visitmodels.Event.IsOpen)
	case models.FilterScheduled:
		return r.IsApproved() && len(r.Events) == 0
	default:
		return true
	}
}

func matchesSearch(r *visitmodels.VisitRecord, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{r.Name, r.Email, r.Purpose, r.Mobile} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func rowsFor(r *visitmodels.VisitRecord, from, to time.Time) []models.Row {
	visitInRange := inRange(r.VisitAt, from, to)
	base := models.Row{
		Name:    r.Name,
		Email:   r.Email,
		Mobile:  r.Mobile,
		Purpose: r.Purpose,
		VisitAt: r.VisitAt,
	}

	if len(r.Events) == 0 {
		if !visitInRange {
			return nil
		}
		row := base
		row.Status = scheduledLabel(r.Status)
		return []models.Row{row}
	}

	var rows []models.Row
	for _, e := range r.Events {
		if !visitInRange && !inRange(e.EntryTime, from, to) {
			continue
		}
		row := base
		entry := e.EntryTime
		row.EntryTime = &entry
		if e.IsOpen() {
			row.Status = models.RowInside
		} else {
			exit := *e.ExitTime
			row.ExitTime = &exit
			row.Status = models.RowCompleted
			minutes := int64(e.Duration().Round(time.Minute) / time.Minute)
			row.DurationMinutes = &minutes
		}
		rows = append(rows, row)
	}
	return rows
}

func scheduledLabel(status visitmodels.Status) string {
	if status == visitmodels.StatusApproved {
		return models.RowScheduled
	}
	s := string(status)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func summarize(rows []models.Row) models.Summary {
	sum := models.Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case models.RowCompleted:
			sum.Completed++
		case models.RowInside:
			sum.Inside++
		case models.RowScheduled:
			sum.Scheduled++
		}
	}
	return sum
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
