package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket-survival/internal/budget"
	"pocket-survival/internal/memstore"
	"pocket-survival/internal/metrics"
	"pocket-survival/internal/models"
	"pocket-survival/internal/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakePublisher struct {
	logged []models.Expense
	resets []string
	err    error
}

func (f *fakePublisher) PublishExpenseLogged(_ context.Context, e models.Expense) error {
	f.logged = append(f.logged, e)
	return f.err
}

func (f *fakePublisher) PublishReset(_ context.Context, owner string) error {
	f.resets = append(f.resets, owner)
	return f.err
}

// failingReset refuses to wipe the ledger.
type failingReset struct {
	*memstore.Store
}

func (f *failingReset) Reset(context.Context, string) error {
	return models.WrapStorage("reset", errors.New("disk full"))
}

// Sunday afternoon, 13 days before the end of October.
var fixedNow = time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC)

type TrackerTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memstore.Store
	events  *fakePublisher
	tracker *Tracker
}

func (s *TrackerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.events = &fakePublisher{}
	s.tracker = NewTracker(s.store, budget.NewHolder(s.store, decimal.NewFromInt(1000)),
		WithPublisher(s.events),
		WithRecorder(telemetry.NewRecorder()),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }))
}

func (s *TrackerTestSuite) TestDashboardOfEmptyLedger() {
	d, err := s.tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(d.Metrics.Remaining))
	s.Equal(100.0, d.Metrics.HealthPercent)
	s.Equal(13, d.Metrics.DaysLeft)
	s.Empty(d.Recent)
}

func (s *TrackerTestSuite) TestSpendDamagesHP() {
	_, err := s.tracker.Spend(s.ctx, models.LocalOwner, "Coffee", "150")
	s.Require().NoError(err)
	e, err := s.tracker.Spend(s.ctx, models.LocalOwner, "  Book ", "400,00")
	s.Require().NoError(err)
	s.Equal("Book", e.Item)

	d, err := s.tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(550).Equal(d.Metrics.TotalSpent))
	s.True(decimal.NewFromInt(450).Equal(d.Metrics.Remaining))
	s.Equal(45.0, d.Metrics.HealthPercent)
	s.Len(d.Recent, 2)
	s.Len(s.events.logged, 2)
}

func (s *TrackerTestSuite) TestSpendRejectsBadInput() {
	_, err := s.tracker.Spend(s.ctx, models.LocalOwner, "", "50")
	s.ErrorIs(err, models.ErrEmptyItem)
	_, err = s.tracker.Spend(s.ctx, models.LocalOwner, "Snack", "-5")
	s.ErrorIs(err, models.ErrInvalidAmount)
	_, err = s.tracker.Spend(s.ctx, models.LocalOwner, "Snack", "lots")
	s.ErrorIs(err, models.ErrInvalidAmount)

	records, err := s.tracker.Records(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.Empty(records)
	s.Empty(s.events.logged)
}

func (s *TrackerTestSuite) TestPublishFailureDoesNotFailSpend() {
	s.events.err = errors.New("broker down")
	_, err := s.tracker.Spend(s.ctx, models.LocalOwner, "Tea", "2")
	s.NoError(err)
	_, err = s.tracker.Reset(s.ctx, models.LocalOwner)
	s.NoError(err)
}

func (s *TrackerTestSuite) TestResetRestoresInitialCeiling() {
	_, err := s.tracker.SetBudget(s.ctx, models.LocalOwner, "300")
	s.Require().NoError(err)
	_, err = s.tracker.Spend(s.ctx, models.LocalOwner, "Rent", "1200")
	s.Require().NoError(err)

	d, err := s.tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.Equal(metrics.StatusOverdraft, d.Metrics.Status())

	p, err := s.tracker.Reset(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(p.Ceiling))
	s.Equal([]string{models.LocalOwner}, s.events.resets)

	d, err = s.tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(d.Metrics.TotalSpent.IsZero())
	s.Equal(100.0, d.Metrics.HealthPercent)
}

func (s *TrackerTestSuite) TestFailedResetKeepsCeilingAndLedger() {
	broken := &failingReset{Store: s.store}
	tracker := NewTracker(broken, budget.NewHolder(s.store, decimal.NewFromInt(1000)),
		WithPublisher(s.events),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }))

	_, err := tracker.SetBudget(s.ctx, models.LocalOwner, "300")
	s.Require().NoError(err)
	_, err = tracker.Spend(s.ctx, models.LocalOwner, "Rent", "120")
	s.Require().NoError(err)

	_, err = tracker.Reset(s.ctx, models.LocalOwner)
	var se *models.StorageError
	s.Require().ErrorAs(err, &se)

	d, err := tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(300).Equal(d.Profile.Ceiling), d.Profile.Ceiling.String())
	s.True(decimal.NewFromInt(120).Equal(d.Metrics.TotalSpent))
	s.Empty(s.events.resets)
}

func (s *TrackerTestSuite) TestSetBudget() {
	_, err := s.tracker.SetBudget(s.ctx, models.LocalOwner, "-10")
	s.ErrorIs(err, models.ErrNegativeCeiling)

	p, err := s.tracker.SetBudget(s.ctx, models.LocalOwner, "2500.5")
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("2500.50").Equal(p.Ceiling))

	p, err = s.tracker.ResetBudget(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(p.Ceiling))
}

func (s *TrackerTestSuite) TestOwnersAreIsolated() {
	_, err := s.tracker.Spend(s.ctx, "alice", "Lunch", "20")
	s.Require().NoError(err)

	d, err := s.tracker.Dashboard(s.ctx, "bob")
	s.Require().NoError(err)
	s.Zero(d.Metrics.Count)
}

func (s *TrackerTestSuite) TestDashboardIgnoresLastMonth() {
	_, err := s.store.Insert(s.ctx, models.LocalOwner, "September rent", decimal.NewFromInt(900), time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC))
	s.Require().NoError(err)

	d, err := s.tracker.Dashboard(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.True(d.Metrics.TotalSpent.IsZero())
	s.Empty(d.Recent)

	all, err := s.tracker.Records(s.ctx, models.LocalOwner)
	s.Require().NoError(err)
	s.Len(all, 1, "export still sees every record")
}

func (s *TrackerTestSuite) TestDayLog() {
	monday := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	tuesday := monday.Add(24 * time.Hour)
	for _, e := range []struct {
		item   string
		amount int64
		at     time.Time
	}{
		{"Bus", 3, monday},
		{"Lunch", 12, monday.Add(2 * time.Hour)},
		{"Cinema", 15, tuesday},
	} {
		_, err := s.store.Insert(s.ctx, models.LocalOwner, e.item, decimal.NewFromInt(e.amount), e.at)
		s.Require().NoError(err)
	}

	log, err := s.tracker.DayLog(s.ctx, models.LocalOwner, "")
	s.Require().NoError(err)
	s.Equal("Tuesday", log.Day, "empty selection picks the most recent day")
	s.Len(log.Days, 2)

	log, err = s.tracker.DayLog(s.ctx, models.LocalOwner, "monday")
	s.Require().NoError(err)
	s.Equal("Monday", log.Day)
	s.Len(log.Entries, 2)
	s.True(decimal.NewFromInt(15).Equal(log.Total))

	_, err = s.tracker.DayLog(s.ctx, models.LocalOwner, "Funday")
	s.True(models.IsValidation(err))
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func TestDashboardRecentIsCapped(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tr := NewTracker(store, budget.NewHolder(store, decimal.NewFromInt(5000)),
		WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))

	for i := 0; i < RecentLimit+5; i++ {
		_, err := store.Insert(ctx, models.LocalOwner, "Gum", decimal.NewFromInt(1), fixedNow.Add(-time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	d, err := tr.Dashboard(ctx, models.LocalOwner)
	require.NoError(t, err)
	assert.Len(t, d.Recent, RecentLimit)
	assert.Equal(t, RecentLimit+5, d.Metrics.Count)
	assert.True(t, d.Recent[0].OccurredAt.After(d.Recent[1].OccurredAt))
}
