package service

import (
	"context"
	"testing"
	"time"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

// fillApprovedMonth seeds one approved report per day for the seeded station.
func fillApprovedMonth(t *testing.T, env *testEnv, year, month, days int) {
	t.Helper()
	for d := 1; d <= days; d++ {
		env.seedReport(t, env.station.ID, date(year, month, d), model.ReportApproved, dec("10"))
	}
}

func TestClosureStatusIncomplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		env.seedReport(t, env.station.ID, date(2025, 2, d), model.ReportApproved, dec("10"))
	}

	status, err := env.closures.Status(ctx, env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.False(t, status.Closed)
	require.False(t, status.CanClose)
	require.Len(t, status.Stations, 1)
	require.Equal(t, 28, status.Stations[0].DaysInMonth)
	require.Equal(t, 5, status.Stations[0].DaysReported)

	_, err = env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrValidation)
}

func TestClosureRequiresApprovalNotJustCapture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fillApprovedMonth(t, env, 2025, 2, 27)
	env.seedReport(t, env.station.ID, date(2025, 2, 28), model.ReportPending, dec("10"))

	status, err := env.closures.Status(ctx, env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.Equal(t, 28, status.Stations[0].DaysReported)
	require.Equal(t, 27, status.Stations[0].DaysApproved)
	require.False(t, status.CanClose)

	_, err = env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrValidation)
}

func TestClosureCloseAndRollups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fillApprovedMonth(t, env, 2025, 2, 28)

	status, err := env.closures.Status(ctx, env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.True(t, status.CanClose)

	closed, err := env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.True(t, closed.Closed)
	require.NotNil(t, closed.ClosedAt)

	rollups, err := env.closures.Rollups(ctx, env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	require.Equal(t, string(model.ProductMagna), rollups[0].Product)
	require.Equal(t, "28000.0000", rollups[0].LitersSold)
	require.Equal(t, "560000.0000", rollups[0].SaleAmount)
	require.Equal(t, "280.0000", rollups[0].ShrinkageAmount)
	require.Equal(t, 28, rollups[0].DaysApproved)

	_, err = env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClosureCloseAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fillApprovedMonth(t, env, 2025, 2, 28)

	_, err := env.closures.Close(ctx, env.stationActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrAuthorization)
	_, err = env.closures.Close(ctx, env.directionActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrAuthorization)

	// Admins pass the zone scope.
	_, err = env.closures.Close(ctx, env.adminActor(), env.zone.ID, 2025, 2)
	require.NoError(t, err)
}

func TestClosureReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fillApprovedMonth(t, env, 2025, 2, 28)
	_, err := env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.NoError(t, err)

	// Reopening the operational period is reserved to administrators.
	_, err = env.closures.Reopen(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrAuthorization)

	reopened, err := env.closures.Reopen(ctx, env.adminActor(), env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.False(t, reopened.Closed)

	// Rollups are discarded so the next close recomputes them.
	rollups, err := env.closures.Rollups(ctx, env.zone.ID, 2025, 2)
	require.NoError(t, err)
	require.Empty(t, rollups)
}

func TestClosureReopenNotClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.closures.Reopen(ctx, env.adminActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClosureReopenBlockedByClosedSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fillApprovedMonth(t, env, 2025, 2, 28)
	_, err := env.closures.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 2)
	require.NoError(t, err)

	now := time.Now()
	closedRow := model.MonthlySettlement{
		ZoneID:   env.zone.ID,
		Year:     2025,
		Month:    2,
		Status:   model.SettlementClosed,
		ClosedBy: &env.zoneUser.ID,
		ClosedAt: &now,
	}
	require.NoError(t, env.settlementRepo.CreateRows(ctx, []model.MonthlySettlement{closedRow}))

	_, err = env.closures.Reopen(ctx, env.adminActor(), env.zone.ID, 2025, 2)
	require.ErrorIs(t, err, ErrPrerequisiteNotMet)
}
