//go:build integration

package record_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/visit/models"
	"gatepass/internal/visit/store/record"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = record.NewPostgres(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "visit_events", "visits")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) registerApproved(email string) *models.VisitRecord {
	ctx := context.Background()
	rec, err := s.store.Upsert(ctx, models.NewVisitRecord(id.NewVisitID(), models.Registration{
		Email: email, Name: "Visitor", Mobile: "9876543210", Purpose: "Delivery", VisitAt: s.now,
	}, s.now))
	s.Require().NoError(err)
	rec, err = s.store.Execute(ctx, rec.ID,
		func(r *models.VisitRecord) error { return r.CanApprove() },
		func(r *models.VisitRecord) { r.ApplyApproval(s.now) },
	)
	s.Require().NoError(err)
	return rec
}

func (s *PostgresStoreSuite) TestLedgerRoundTrip() {
	ctx := context.Background()
	rec := s.registerApproved("ledger@x.com")

	for i := range 2 {
		at := s.now.Add(time.Duration(i) * time.Hour)
		_, err := s.store.Execute(ctx, rec.ID,
			func(r *models.VisitRecord) error { return r.CanScan() },
			func(r *models.VisitRecord) { r.ApplyEntry(at) },
		)
		s.Require().NoError(err)
		_, err = s.store.Execute(ctx, rec.ID,
			func(r *models.VisitRecord) error { return r.CanRecordExit() },
			func(r *models.VisitRecord) { r.ApplyExit(at.Add(20 * time.Minute)) },
		)
		s.Require().NoError(err)
	}

	found, err := s.store.FindByEmail(ctx, "ledger@x.com")
	s.Require().NoError(err)
	s.Require().Len(found.Events, 2)
	s.False(found.IsVisited())
	s.Equal(20*time.Minute, found.Events[1].Duration())
}

func (s *PostgresStoreSuite) TestReRegistrationClearsLedger() {
	ctx := context.Background()
	rec := s.registerApproved("again@x.com")
	_, err := s.store.Execute(ctx, rec.ID,
		func(r *models.VisitRecord) error { return r.CanScan() },
		func(r *models.VisitRecord) { r.ApplyEntry(s.now) },
	)
	s.Require().NoError(err)

	again, err := s.store.Upsert(ctx, models.NewVisitRecord(id.NewVisitID(), models.Registration{
		Email: "again@x.com", Name: "Renamed", Mobile: "1234567890", Purpose: "Second", VisitAt: s.now,
	}, s.now))
	s.Require().NoError(err)

	s.Equal(rec.ID, again.ID)
	s.Equal(models.StatusPending, again.Status)
	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Empty(found.Events)
	s.Equal("Renamed", found.Name)
}

func (s *PostgresStoreSuite) TestInvariantViolationRollsBack() {
	ctx := context.Background()
	rec := s.registerApproved("bad@x.com")

	_, err := s.store.Execute(ctx, rec.ID,
		func(*models.VisitRecord) error { return nil },
		func(r *models.VisitRecord) { r.Presence = models.PresenceInside },
	)
	s.True(dErrors.HasCode(err, dErrors.CodeCorruptState))

	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.PresenceOutside, found.Presence)
}

func (s *PostgresStoreSuite) TestDeleteRequiresExpectedStatus() {
	ctx := context.Background()
	rec := s.registerApproved("del@x.com")

	s.ErrorIs(s.store.Delete(ctx, rec.ID, models.StatusRejected), sentinel.ErrInvalidState)
	s.ErrorIs(s.store.Delete(ctx, id.NewVisitID(), models.StatusRejected), sentinel.ErrNotFound)
}

// TestConcurrentEntryScans verifies FOR UPDATE serializes racing entries.
func (s *PostgresStoreSuite) TestConcurrentEntryScans() {
	ctx := context.Background()
	rec := s.registerApproved("race@x.com")

	const goroutines = 20
	var wg sync.WaitGroup
	var entries atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, rec.ID,
				func(r *models.VisitRecord) error {
					if r.IsVisited() {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(r *models.VisitRecord) { r.ApplyEntry(s.now) },
			)
			if err == nil {
				entries.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), entries.Load())
	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Len(found.Events, 1)
	s.True(found.IsVisited())
}
