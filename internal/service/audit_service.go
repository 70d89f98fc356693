package service

import (
	"context"
	"fmt"
	"time"

	"custodia/internal/repository"

	"github.com/google/uuid"
)

type AuditListFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
}

type AuditResponse struct {
	ID          string `json:"id"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	ActorID     string `json:"actor_id"`
	ActorName   string `json:"actor_name,omitempty"`
	Action      string `json:"action"`
	BeforeValue string `json:"before_value,omitempty"`
	AfterValue  string `json:"after_value,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type AuditService interface {
	List(ctx context.Context, filter AuditListFilter, page, limit int) ([]AuditResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, filter AuditListFilter, page, limit int) ([]AuditResponse, int64, error) {
	repoFilter := repository.AuditFilter{
		EntityType: filter.EntityType,
		Action:     filter.Action,
	}
	if filter.EntityID != "" {
		if _, err := uuid.Parse(filter.EntityID); err != nil {
			return nil, 0, fmt.Errorf("%w: invalid entity_id", ErrValidation)
		}
		repoFilter.EntityID = filter.EntityID
	}
	if filter.ActorID != "" {
		id, err := uuid.Parse(filter.ActorID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid actor_id", ErrValidation)
		}
		repoFilter.ActorID = &id
	}

	records, total, err := s.auditRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}

	result := make([]AuditResponse, 0, len(records))
	for _, rec := range records {
		resp := AuditResponse{
			ID:          rec.ID.String(),
			EntityType:  rec.EntityType,
			EntityID:    rec.EntityID,
			Action:      rec.Action,
			BeforeValue: rec.BeforeValue,
			AfterValue:  rec.AfterValue,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		}
		if rec.ActorID != nil {
			resp.ActorID = rec.ActorID.String()
		}
		if rec.Actor != nil {
			resp.ActorName = rec.Actor.Username
		}
		result = append(result, resp)
	}
	return result, total, nil
}
