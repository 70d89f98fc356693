package service

import (
	"context"
	"testing"
	"time"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

func TestExpenseWithinAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("1000"), date(2025, 1, 1))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	// Custody balance 300 is the binding constraint, not the 1000 ceiling.
	avail, _, err := env.expenses.Available(ctx, model.EntityStation, env.station.ID, 2025, 3)
	require.NoError(t, err)
	require.Equal(t, "1000.0000", avail.LimitAvailable)
	require.Equal(t, "300.0000", avail.CustodyAvailable)
	require.Equal(t, "300.0000", avail.Available)

	resp, err := env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("150"),
		Concept:    "pump maintenance",
		Date:       "2025-03-10",
	})
	require.NoError(t, err)
	require.Equal(t, "150.0000", resp.Amount)

	// Both the spent counter and the custody side shrink by the expense.
	avail, _, err = env.expenses.Available(ctx, model.EntityStation, env.station.ID, 2025, 3)
	require.NoError(t, err)
	require.Equal(t, "150.0000", avail.AlreadySpent)
	require.Equal(t, "850.0000", avail.LimitAvailable)
	require.Equal(t, "150.0000", avail.Available)
}

func TestExpenseExceedsAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("1000"), date(2025, 1, 1))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	_, err := env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("300.01"),
		Concept:    "pump maintenance",
		Date:       "2025-03-10",
	})
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestExpenseCeilingBinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("100"), date(2025, 1, 1))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	avail, _, err := env.expenses.Available(ctx, model.EntityStation, env.station.ID, 2025, 3)
	require.NoError(t, err)
	require.Equal(t, "100.0000", avail.Available)

	_, err = env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("150"),
		Concept:    "pump maintenance",
		Date:       "2025-03-10",
	})
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestExpenseWithoutConfiguredLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	_, _, err := env.expenses.Available(ctx, model.EntityStation, env.station.ID, 2025, 3)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("10"),
		Concept:    "pump maintenance",
		Date:       "2025-03-10",
	})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestExpenseRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("1000"), date(2025, 1, 1))

	for _, amount := range []string{"0", "-5"} {
		_, err := env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
			EntityType: string(model.EntityStation),
			EntityID:   env.station.ID.String(),
			Amount:     dec(amount),
			Concept:    "pump maintenance",
			Date:       "2025-03-10",
		})
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestExpenseAuthorizationScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("1000"), date(2025, 1, 1))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	// A zone actor cannot spend against a station's custody.
	_, err := env.expenses.Create(ctx, env.zoneActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("10"),
		Concept:    "pump maintenance",
		Date:       "2025-03-10",
	})
	require.ErrorIs(t, err, ErrAuthorization)

	// A station actor cannot spend against the zone's custody.
	_, err = env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityZone),
		EntityID:   env.zone.ID.String(),
		Amount:     dec("10"),
		Concept:    "office supplies",
		Date:       "2025-03-10",
	})
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestZoneExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedZoneLimit(t, dec("500"), date(2025, 1, 1))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 5), dec("400"))

	resp, err := env.expenses.Create(ctx, env.zoneActor(), CreateExpenseRequest{
		EntityType: string(model.EntityZone),
		EntityID:   env.zone.ID.String(),
		Amount:     dec("120"),
		Concept:    "office supplies",
		Category:   "ADMIN",
		Date:       "2025-03-12",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ZoneID)

	balance, err := env.balances.ZoneBalance(ctx, env.zone.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "280", balance.Balance)
}

func TestExpenseBlockedBySettlementLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStationLimit(t, env.station.ID, dec("1000"), date(2025, 1, 1))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("300"))

	now := time.Now()
	closedRow := model.MonthlySettlement{
		ZoneID:   env.zone.ID,
		Year:     2025,
		Month:    3,
		Status:   model.SettlementClosed,
		ClosedBy: &env.zoneUser.ID,
		ClosedAt: &now,
	}
	require.NoError(t, env.settlementRepo.CreateRows(ctx, []model.MonthlySettlement{closedRow}))

	_, err := env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("10"),
		Concept:    "pump maintenance",
		Date:       "2025-03-20",
	})
	require.ErrorIs(t, err, ErrPeriodLocked)

	// The next month is not locked; it fails further down the validator
	// because April has no custody yet.
	_, err = env.expenses.Create(ctx, env.stationActor(), CreateExpenseRequest{
		EntityType: string(model.EntityStation),
		EntityID:   env.station.ID.String(),
		Amount:     dec("10"),
		Concept:    "pump maintenance",
		Date:       "2025-04-02",
	})
	require.ErrorIs(t, err, ErrLimitExceeded)
}
