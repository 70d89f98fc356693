package service

import (
	"context"
	"encoding/json"

	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// auditor writes audit records alongside mutations. Audit failures are
// logged and swallowed: observability is best-effort, the primary operation
// must not roll back because the trail could not be written.
type auditor struct {
	repo repository.AuditRepository
	log  zerolog.Logger
}

func newAuditor(repo repository.AuditRepository, log zerolog.Logger) *auditor {
	return &auditor{repo: repo, log: log}
}

func (a *auditor) record(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string, before, after interface{}, description string) {
	rec := &model.AuditRecord{
		EntityType:  entityType,
		EntityID:    entityID,
		ActorID:     &actorID,
		Action:      action,
		Description: description,
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			rec.BeforeValue = string(raw)
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			rec.AfterValue = string(raw)
		}
	}

	if err := a.repo.Log(ctx, rec); err != nil {
		a.log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("audit record write failed")
	}
}
