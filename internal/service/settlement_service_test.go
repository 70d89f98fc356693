package service

import (
	"context"
	"testing"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

// seedSettlementMonth loads March 2025 with the standard fixture: 500 of
// approved shrinkage, a confirmed 200 handoff to the zone, a 100 station
// expense and a 50 zone expense.
func seedSettlementMonth(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("500"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 10), dec("200"))

	stationExpense := model.Expense{
		StationID: &env.station.ID,
		Amount:    dec("100"),
		Concept:   "pump maintenance",
		SpentAt:   date(2025, 3, 12),
		CreatedBy: env.stationUser.ID,
	}
	require.NoError(t, env.expenseRepo.Create(ctx, &stationExpense))

	zoneExpense := model.Expense{
		ZoneID:    &env.zone.ID,
		Amount:    dec("50"),
		Concept:   "office supplies",
		SpentAt:   date(2025, 3, 15),
		CreatedBy: env.zoneUser.ID,
	}
	require.NoError(t, env.expenseRepo.Create(ctx, &zoneExpense))
}

func zoneRowOf(t *testing.T, rows []SettlementRowResponse) SettlementRowResponse {
	t.Helper()
	for _, row := range rows {
		if row.StationID == nil {
			return row
		}
	}
	t.Fatal("no zone-level settlement row")
	return SettlementRowResponse{}
}

func TestSettlementRequiresOperationalClosure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.ErrorIs(t, err, ErrPrerequisiteNotMet)
}

func TestSettlementClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSettlementMonth(t, env)
	env.closeOperational(t, 2025, 3)

	rows, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "march close")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	zoneRow := zoneRowOf(t, rows)
	require.Equal(t, string(model.SettlementClosed), zoneRow.Status)
	require.Equal(t, "0.0000", zoneRow.OpeningBalance)
	require.Equal(t, "500.0000", zoneRow.ShrinkageTotal)
	require.Equal(t, "200.0000", zoneRow.DeliveriesTotal)
	require.Equal(t, "50.0000", zoneRow.ExpensesTotal)
	// 0 + 200 received - 0 sent - 50 expenses
	require.Equal(t, "150.0000", zoneRow.ClosingBalance)
	// Custody still held by the station.
	require.Equal(t, "200.0000", zoneRow.Difference)
	require.Equal(t, "march close", zoneRow.Observations)
	require.NotNil(t, zoneRow.ClosedAt)

	var stationRow SettlementRowResponse
	for _, row := range rows {
		if row.StationID != nil {
			stationRow = row
		}
	}
	require.NotNil(t, stationRow.StationID)
	require.Equal(t, "500.0000", stationRow.ShrinkageTotal)
	require.Equal(t, "200.0000", stationRow.DeliveriesTotal)
	require.Equal(t, "100.0000", stationRow.ExpensesTotal)
	require.Equal(t, "200.0000", stationRow.ClosingBalance)
	require.Equal(t, "200.0000", stationRow.Difference)
	require.Equal(t, string(model.SettlementClosed), stationRow.Status)
}

func TestSettlementDoubleClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSettlementMonth(t, env)
	env.closeOperational(t, 2025, 3)

	_, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.NoError(t, err)
	_, err = env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSettlementCloseAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.closeOperational(t, 2025, 3)

	_, err := env.settlements.Close(ctx, env.stationActor(), env.zone.ID, 2025, 3, "")
	require.ErrorIs(t, err, ErrAuthorization)
	_, err = env.settlements.Close(ctx, env.directionActor(), env.zone.ID, 2025, 3, "")
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestSettlementReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSettlementMonth(t, env)
	env.closeOperational(t, 2025, 3)
	_, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.NoError(t, err)

	// Reopening the accounting close is the zone's own call, not an
	// administrator override, and always carries a reason.
	_, err = env.settlements.Reopen(ctx, env.adminActor(), env.zone.ID, 2025, 3, "recount")
	require.ErrorIs(t, err, ErrAuthorization)
	_, err = env.settlements.Reopen(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.ErrorIs(t, err, ErrValidation)

	rows, err := env.settlements.Reopen(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "missing expense voucher")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, string(model.SettlementReopened), row.Status)
		require.Equal(t, "missing expense voucher", row.ReopenReason)
	}

	_, err = env.settlements.Reopen(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "again")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSettlementRecloseAfterReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSettlementMonth(t, env)
	env.closeOperational(t, 2025, 3)
	_, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.NoError(t, err)
	_, err = env.settlements.Reopen(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "late voucher")
	require.NoError(t, err)

	// The correction lands, then the month closes again with fresh figures.
	late := model.Expense{
		ZoneID:    &env.zone.ID,
		Amount:    dec("25"),
		Concept:   "late voucher",
		SpentAt:   date(2025, 3, 28),
		CreatedBy: env.zoneUser.ID,
	}
	require.NoError(t, env.expenseRepo.Create(ctx, &late))

	rows, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "second pass")
	require.NoError(t, err)
	zoneRow := zoneRowOf(t, rows)
	require.Equal(t, string(model.SettlementClosed), zoneRow.Status)
	require.Equal(t, "75.0000", zoneRow.ExpensesTotal)
	require.Equal(t, "125.0000", zoneRow.ClosingBalance)
}

func TestSettlementCarriesOpeningForward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedSettlementMonth(t, env)
	env.closeOperational(t, 2025, 3)
	_, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 3, "")
	require.NoError(t, err)

	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 4, 10), dec("100"))
	env.closeOperational(t, 2025, 4)

	rows, err := env.settlements.Close(ctx, env.zoneActor(), env.zone.ID, 2025, 4, "")
	require.NoError(t, err)
	zoneRow := zoneRowOf(t, rows)
	require.Equal(t, "150.0000", zoneRow.OpeningBalance)
	require.Equal(t, "250.0000", zoneRow.ClosingBalance)
}
