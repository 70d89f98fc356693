package service

import (
	"context"
	"testing"
	"time"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

func TestStationDeliveryRequiresEvidence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.deliveries.Initiate(ctx, env.stationActor(), InitiateDeliveryRequest{
		Kind:      string(model.DeliveryStationToZone),
		StationID: env.station.ID.String(),
		ZoneID:    env.zone.ID.String(),
		Amount:    dec("100"),
		Date:      "2025-03-10",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestStationDeliveryCounterSignatureFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("500"))

	initiated, err := env.deliveries.Initiate(ctx, env.stationActor(), InitiateDeliveryRequest{
		Kind:         string(model.DeliveryStationToZone),
		StationID:    env.station.ID.String(),
		ZoneID:       env.zone.ID.String(),
		Amount:       dec("200"),
		Concept:      "weekly handoff",
		Date:         "2025-03-10",
		EvidencePath: "evidence/2025-03-10.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, string(model.DeliveryPendingSignature), initiated.Status)

	// Unconfirmed deliveries do not touch the balance.
	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "500", balance.Balance)

	// Only the receiving zone may counter-sign.
	_, err = env.deliveries.Confirm(ctx, env.directionActor(), initiated.ID)
	require.ErrorIs(t, err, ErrAuthorization)
	_, err = env.deliveries.Confirm(ctx, env.stationActor(), initiated.ID)
	require.ErrorIs(t, err, ErrAuthorization)

	confirmed, err := env.deliveries.Confirm(ctx, env.zoneActor(), initiated.ID)
	require.NoError(t, err)
	require.Equal(t, string(model.DeliveryConfirmed), confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	balance, err = env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "300", balance.Balance)

	// Confirmation is terminal.
	_, err = env.deliveries.Confirm(ctx, env.zoneActor(), initiated.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStationOverDeliveryIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("500"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 8), dec("200"))

	// Balance is 300; handing in 400 covers an earlier shortfall.
	initiated, err := env.deliveries.Initiate(ctx, env.stationActor(), InitiateDeliveryRequest{
		Kind:         string(model.DeliveryStationToZone),
		StationID:    env.station.ID.String(),
		ZoneID:       env.zone.ID.String(),
		Amount:       dec("400"),
		Date:         "2025-03-15",
		EvidencePath: "evidence/2025-03-15.jpg",
	})
	require.NoError(t, err)

	_, err = env.deliveries.Confirm(ctx, env.zoneActor(), initiated.ID)
	require.NoError(t, err)

	balance, err := env.balances.StationBalance(ctx, env.station.ID, 2025, 3)
	require.NoError(t, err)
	requireAmount(t, "-100", balance.Balance)
}

func TestZoneToDirectionRejectsOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 5), dec("600"))

	_, err := env.deliveries.Initiate(ctx, env.zoneActor(), InitiateDeliveryRequest{
		Kind:        string(model.DeliveryZoneToDirection),
		ZoneID:      env.zone.ID.String(),
		Amount:      dec("700"),
		Date:        "2025-03-20",
		AddresseeID: env.directionUser.ID.String(),
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The balance check runs inside the insert transaction; a failed
	// initiation leaves no row behind.
	_, total, err := env.deliveries.List(ctx, env.zoneActor(),
		DeliveryListFilter{Kind: string(model.DeliveryZoneToDirection)}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)

	_, err = env.deliveries.Initiate(ctx, env.zoneActor(), InitiateDeliveryRequest{
		Kind:        string(model.DeliveryZoneToDirection),
		ZoneID:      env.zone.ID.String(),
		Amount:      dec("600"),
		Date:        "2025-03-20",
		AddresseeID: env.directionUser.ID.String(),
	})
	require.NoError(t, err)
}

func TestZoneToDirectionAddresseeRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 5), dec("600"))

	// The addressee must hold a direction-class role.
	_, err := env.deliveries.Initiate(ctx, env.zoneActor(), InitiateDeliveryRequest{
		Kind:        string(model.DeliveryZoneToDirection),
		ZoneID:      env.zone.ID.String(),
		Amount:      dec("100"),
		Date:        "2025-03-20",
		AddresseeID: env.stationUser.ID.String(),
	})
	require.ErrorIs(t, err, ErrValidation)

	initiated, err := env.deliveries.Initiate(ctx, env.zoneActor(), InitiateDeliveryRequest{
		Kind:        string(model.DeliveryZoneToDirection),
		ZoneID:      env.zone.ID.String(),
		Amount:      dec("100"),
		Date:        "2025-03-20",
		AddresseeID: env.directionUser.ID.String(),
	})
	require.NoError(t, err)

	// Only the named addressee may counter-sign.
	_, err = env.deliveries.Confirm(ctx, env.zoneActor(), initiated.ID)
	require.ErrorIs(t, err, ErrAuthorization)
	confirmed, err := env.deliveries.Confirm(ctx, env.directionActor(), initiated.ID)
	require.NoError(t, err)
	require.Equal(t, string(model.DeliveryConfirmed), confirmed.Status)
}

func TestStationDeliveryBlockedBySettlementLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("500"))
	env.seedConfirmedDelivery(t, model.DeliveryStationToZone, &env.station.ID, date(2025, 3, 6), dec("100"))

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

	_, err := env.deliveries.Initiate(ctx, env.stationActor(), InitiateDeliveryRequest{
		Kind:         string(model.DeliveryStationToZone),
		StationID:    env.station.ID.String(),
		ZoneID:       env.zone.ID.String(),
		Amount:       dec("100"),
		Date:         "2025-03-25",
		EvidencePath: "evidence/late.jpg",
	})
	require.ErrorIs(t, err, ErrPeriodLocked)

	// Money flowing up to direction bypasses the zone's own lock.
	_, err = env.deliveries.Initiate(ctx, env.zoneActor(), InitiateDeliveryRequest{
		Kind:        string(model.DeliveryZoneToDirection),
		ZoneID:      env.zone.ID.String(),
		Amount:      dec("50"),
		Date:        "2025-03-25",
		AddresseeID: env.directionUser.ID.String(),
	})
	require.NoError(t, err)
}

func TestFindConfirmedForReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedApprovedShrinkage(t, env.station.ID, date(2025, 3, 5), dec("500"))

	initiated, err := env.deliveries.Initiate(ctx, env.stationActor(), InitiateDeliveryRequest{
		Kind:         string(model.DeliveryStationToZone),
		StationID:    env.station.ID.String(),
		ZoneID:       env.zone.ID.String(),
		Amount:       dec("200"),
		Date:         "2025-03-10",
		EvidencePath: "evidence/a.jpg",
	})
	require.NoError(t, err)

	id := mustUUID(t, initiated.ID)
	_, err = env.deliveries.FindConfirmed(ctx, id)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.deliveries.Confirm(ctx, env.zoneActor(), initiated.ID)
	require.NoError(t, err)

	delivery, err := env.deliveries.FindConfirmed(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.DeliveryConfirmed, delivery.Status)
	require.NotNil(t, delivery.Station)
}
