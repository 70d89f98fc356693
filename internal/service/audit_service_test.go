package service

import (
	"context"
	"testing"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

func TestAuditListFiltersByEntity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	audits := NewAuditService(env.auditRepo)

	created, err := env.reports.Create(ctx, env.stationActor(), CreateReportRequest{
		StationID: env.station.ID.String(),
		Date:      "2025-03-01",
		Items:     []LineItemInput{magnaItem()},
	})
	require.NoError(t, err)
	_, err = env.reports.Transition(ctx, env.stationActor(), created.ID, TransitionReportRequest{Status: "APPROVED"})
	require.NoError(t, err)

	records, total, err := audits.List(ctx, AuditListFilter{EntityID: created.ID}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, rec := range records {
		require.Equal(t, created.ID, rec.EntityID)
		require.Equal(t, env.stationUser.ID.String(), rec.ActorID)
	}

	records, total, err = audits.List(ctx, AuditListFilter{
		EntityID: created.ID,
		Action:   model.ActionTransitionReport,
	}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, model.ActionTransitionReport, records[0].Action)
}

func TestAuditListRejectsMalformedFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	audits := NewAuditService(env.auditRepo)

	_, _, err := audits.List(ctx, AuditListFilter{EntityID: "not-a-uuid"}, 1, 10)
	require.ErrorIs(t, err, ErrValidation)
	_, _, err = audits.List(ctx, AuditListFilter{ActorID: "not-a-uuid"}, 1, 10)
	require.ErrorIs(t, err, ErrValidation)
}
