package service

import (
	"context"
	"testing"
	"time"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

func TestStationBalanceComponents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 10), dec("500"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 12), dec("200"))

	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "500", balance.Shrinkage)
	requireAmount(t, "200", balance.Deliveries)
	requireAmount(t, "0", balance.Expenses)
	requireAmount(t, "300", balance.Balance)
}

func TestStationBalanceIgnoresPendingData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Pending report and pending delivery contribute nothing.
	env.seedReport(t, env.station.ID, date(2025, 3, 3), model.ReportPending, dec("999"))
	pending := model.Delivery{
		Kind:        model.DeliveryStationToZone,
		StationID:   &env.station.ID,
		ZoneID:      env.zone.ID,
		Amount:      dec("50"),
		DeliveredAt: date(2025, 3, 4),
		Status:      model.DeliveryPendingSignature,
		InitiatedBy: env.stationUser.ID,
	}
	require.NoError(t, env.deliveryRepo.Create(ctx, &pending))

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("120"))

	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "120", balance.Balance)
}

func TestStationBalanceScopedToMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 2, 28), dec("400"))
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 1), dec("100"))

	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "100", balance.Balance)
}

func TestStationBalanceCanGoNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 10), dec("500"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 12), dec("200"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 20), dec("400"))

	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "-100", balance.Balance)
}

func TestZoneBalanceComponents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 12), dec("600"))
	env.seedConfirmedDelivery(t, model.DeliveryZoneToDirection, nil, date(2025, 3, 20), dec("200"))

	expense := model.Expense{
		ZoneID:    &env.zone.ID,
		Amount:    dec("50"),
		Concept:   "office supplies",
		SpentAt:   date(2025, 3, 15),
		CreatedBy: env.zoneUser.ID,
	}
	require.NoError(t, env.expenseRepo.Create(ctx, &expense))

	balance, err := env.balances.ZoneBalance(ctx, env.zone.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "0", balance.Opening)
	requireAmount(t, "600", balance.Received)
	requireAmount(t, "200", balance.Sent)
	requireAmount(t, "50", balance.Expenses)
	requireAmount(t, "350", balance.Balance)
}

func TestZoneBalanceCarriesOpeningFromClosedSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now()
	prior := model.MonthlySettlement{
		ZoneID:         env.zone.ID,
		Year:           2025,
		Month:          2,
		ClosingBalance: dec("150"),
		Status:         model.SettlementClosed,
		ClosedBy:       &env.zoneUser.ID,
		ClosedAt:       &now,
	}
	require.NoError(t, env.settlementRepo.CreateRows(ctx, []model.MonthlySettlement{prior}))

	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 12), dec("100"))

	balance, err := env.balances.ZoneBalance(ctx, env.zone.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "150", balance.Opening)
	requireAmount(t, "250", balance.Balance)
}

func TestZoneBalanceIgnoresReopenedSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reopened := model.MonthlySettlement{
		ZoneID:         env.zone.ID,
		Year:           2025,
		Month:          2,
		ClosingBalance: dec("999"),
		Status:         model.SettlementReopened,
	}
	require.NoError(t, env.settlementRepo.CreateRows(ctx, []model.MonthlySettlement{reopened}))

	balance, err := env.balances.ZoneBalance(ctx, env.zone.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "0", balance.Opening)
}

func TestBalanceRejectsInvalidPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 13)
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.balances.ZoneBalance(ctx, env.zone.ID, 1900, 1)
	require.ErrorIs(t, err, ErrValidation)
}
