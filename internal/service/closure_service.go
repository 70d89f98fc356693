package service

import (
	"context"
	"fmt"
	"time"

	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// --- DTOs ---

type ClosureStatus struct {
	ZoneID   string                           `json:"zone_id"`
	Year     int                              `json:"year"`
	Month    int                              `json:"month"`
	Closed   bool                             `json:"closed"`
	CanClose bool                             `json:"can_close"`
	Stations []repository.StationCompleteness `json:"stations"`
	ClosedAt *string                          `json:"closed_at"`
	ClosedBy *string                          `json:"closed_by"`
}

type RollupResponse struct {
	StationID       string `json:"station_id"`
	StationName     string `json:"station_name,omitempty"`
	Product         string `json:"product"`
	LitersSold      string `json:"liters_sold"`
	SaleAmount      string `json:"sale_amount"`
	ShrinkageVolume string `json:"shrinkage_volume"`
	ShrinkageAmount string `json:"shrinkage_amount"`
	DaysApproved    int    `json:"days_approved"`
}

// --- Interface ---

type ClosureService interface {
	Status(ctx context.Context, zoneID uuid.UUID, year, month int) (ClosureStatus, error)
	Close(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int) (ClosureStatus, error)
	Reopen(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int) (ClosureStatus, error)
	Rollups(ctx context.Context, zoneID uuid.UUID, year, month int) ([]RollupResponse, error)
}

type closureService struct {
	closureRepo    repository.ClosureRepository
	reportRepo     repository.ReportRepository
	settlementRepo repository.SettlementRepository
	txManager      repository.TransactionManager
	audit          *auditor
	log            zerolog.Logger
}

func NewClosureService(
	closureRepo repository.ClosureRepository,
	reportRepo repository.ReportRepository,
	settlementRepo repository.SettlementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log zerolog.Logger,
) ClosureService {
	return &closureService{
		closureRepo:    closureRepo,
		reportRepo:     reportRepo,
		settlementRepo: settlementRepo,
		txManager:      txManager,
		audit:          newAuditor(auditRepo, log),
		log:            log,
	}
}

// --- Implementation ---

// Status returns the per-station completeness matrix: a zone may close its
// month only when every active station has all days reported and approved.
func (s *closureService) Status(ctx context.Context, zoneID uuid.UUID, year, month int) (ClosureStatus, error) {
	if err := validPeriod(year, month); err != nil {
		return ClosureStatus{}, err
	}
	from, to := monthRange(year, month)

	completeness, err := s.reportRepo.CompletenessByStation(ctx, zoneID, from, to)
	if err != nil {
		return ClosureStatus{}, fmt.Errorf("failed to compute completeness: %w", err)
	}

	closure, err := s.closureRepo.FindByZonePeriod(ctx, zoneID, year, month)
	if err != nil {
		return ClosureStatus{}, fmt.Errorf("failed to load closure: %w", err)
	}

	status := ClosureStatus{
		ZoneID:   zoneID.String(),
		Year:     year,
		Month:    month,
		Stations: completeness,
		CanClose: allComplete(completeness),
	}
	if closure != nil {
		status.Closed = closure.Closed
		if closure.ClosedAt != nil {
			ts := closure.ClosedAt.Format(time.RFC3339)
			status.ClosedAt = &ts
		}
		if closure.ClosedBy != nil {
			by := closure.ClosedBy.String()
			status.ClosedBy = &by
		}
	}
	return status, nil
}

func (s *closureService) Close(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int) (ClosureStatus, error) {
	if err := validPeriod(year, month); err != nil {
		return ClosureStatus{}, err
	}
	if !actor.HasZone(zoneID) {
		return ClosureStatus{}, fmt.Errorf("%w: actor is not assigned to this zone", ErrAuthorization)
	}
	switch actor.Role {
	case model.RoleZone, model.RoleAdmin:
	default:
		return ClosureStatus{}, fmt.Errorf("%w: role %s cannot close an operational period", ErrAuthorization, actor.Role)
	}

	from, to := monthRange(year, month)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		closure, findErr := s.closureRepo.FindByZonePeriod(txCtx, zoneID, year, month)
		if findErr != nil {
			return fmt.Errorf("failed to load closure: %w", findErr)
		}
		if closure != nil && closure.Closed {
			return fmt.Errorf("%w: period %d-%02d is already closed", ErrInvalidTransition, year, month)
		}

		// Completeness is re-validated inside the transaction; a losing
		// concurrent caller observes "already closed" above instead.
		completeness, compErr := s.reportRepo.CompletenessByStation(txCtx, zoneID, from, to)
		if compErr != nil {
			return fmt.Errorf("failed to compute completeness: %w", compErr)
		}
		if !allComplete(completeness) {
			return fmt.Errorf("%w: not every station has all days reported and approved", ErrValidation)
		}

		if delErr := s.closureRepo.DeleteRollups(txCtx, zoneID, year, month); delErr != nil {
			return fmt.Errorf("failed to delete stale rollups: %w", delErr)
		}

		rows, rollErr := s.reportRepo.ApprovedRollups(txCtx, zoneID, from, to)
		if rollErr != nil {
			return fmt.Errorf("failed to compute rollups: %w", rollErr)
		}
		rollups := make([]model.MonthlyRollup, 0, len(rows))
		for _, row := range rows {
			rollups = append(rollups, model.MonthlyRollup{
				ZoneID:          zoneID,
				StationID:       row.StationID,
				Year:            year,
				Month:           month,
				Product:         row.Product,
				LitersSold:      row.LitersSold,
				SaleAmount:      row.SaleAmount,
				ShrinkageVolume: row.ShrinkageVolume,
				ShrinkageAmount: row.ShrinkageAmount,
				DaysApproved:    row.DaysApproved,
			})
		}
		if createErr := s.closureRepo.CreateRollups(txCtx, rollups); createErr != nil {
			return fmt.Errorf("failed to persist rollups: %w", createErr)
		}

		now := time.Now()
		if closure == nil {
			closure = &model.OperationalClosure{ZoneID: zoneID, Year: year, Month: month}
		}
		closure.Closed = true
		closure.ClosedBy = &actor.ID
		closure.ClosedAt = &now
		if saveErr := s.closureRepo.Save(txCtx, closure); saveErr != nil {
			return fmt.Errorf("failed to save closure: %w", saveErr)
		}

		s.audit.record(txCtx, actor.ID, model.ActionCloseOperational, "operational_closure", closure.ID.String(),
			nil, closure, fmt.Sprintf("operational close %d-%02d", year, month))
		return nil
	})
	if err != nil {
		return ClosureStatus{}, err
	}

	s.log.Info().
		Str("zone_id", zoneID.String()).
		Int("year", year).Int("month", month).
		Msg("operational period closed")

	return s.Status(ctx, zoneID, year, month)
}

// Reopen unlocks report capture again. Administrator-only. Rollups are
// deleted so the next close recomputes them; settlement rows of a not yet
// closed settlement are cleared too, since their inputs may change. A
// CLOSED settlement must be reopened first.
func (s *closureService) Reopen(ctx context.Context, actor Actor, zoneID uuid.UUID, year, month int) (ClosureStatus, error) {
	if err := validPeriod(year, month); err != nil {
		return ClosureStatus{}, err
	}
	if !actor.Role.IsAdmin() {
		return ClosureStatus{}, fmt.Errorf("%w: only administrators may reopen an operational period", ErrAuthorization)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		closure, findErr := s.closureRepo.FindByZonePeriod(txCtx, zoneID, year, month)
		if findErr != nil {
			return fmt.Errorf("failed to load closure: %w", findErr)
		}
		if closure == nil || !closure.Closed {
			return fmt.Errorf("%w: period %d-%02d is not closed", ErrInvalidTransition, year, month)
		}

		zoneRow, setErr := s.settlementRepo.FindZoneRow(txCtx, zoneID, year, month)
		if setErr != nil {
			return fmt.Errorf("failed to check settlement: %w", setErr)
		}
		if zoneRow != nil && zoneRow.Status == model.SettlementClosed {
			return fmt.Errorf("%w: settlement %d-%02d must be reopened first", ErrPrerequisiteNotMet, year, month)
		}
		if zoneRow != nil {
			if delErr := s.settlementRepo.DeleteRows(txCtx, zoneID, year, month); delErr != nil {
				return fmt.Errorf("failed to clear settlement rows: %w", delErr)
			}
		}

		if delErr := s.closureRepo.DeleteRollups(txCtx, zoneID, year, month); delErr != nil {
			return fmt.Errorf("failed to delete rollups: %w", delErr)
		}

		before := *closure
		now := time.Now()
		closure.Closed = false
		closure.ReopenedBy = &actor.ID
		closure.ReopenedAt = &now
		if saveErr := s.closureRepo.Save(txCtx, closure); saveErr != nil {
			return fmt.Errorf("failed to save closure: %w", saveErr)
		}

		s.audit.record(txCtx, actor.ID, model.ActionReopenOperational, "operational_closure", closure.ID.String(),
			before, closure, fmt.Sprintf("operational reopen %d-%02d", year, month))
		return nil
	})
	if err != nil {
		return ClosureStatus{}, err
	}

	return s.Status(ctx, zoneID, year, month)
}

func (s *closureService) Rollups(ctx context.Context, zoneID uuid.UUID, year, month int) ([]RollupResponse, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	rollups, err := s.closureRepo.ListRollups(ctx, zoneID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups: %w", err)
	}

	result := make([]RollupResponse, 0, len(rollups))
	for _, r := range rollups {
		resp := RollupResponse{
			StationID:       r.StationID.String(),
			Product:         string(r.Product),
			LitersSold:      r.LitersSold.StringFixed(4),
			SaleAmount:      r.SaleAmount.StringFixed(4),
			ShrinkageVolume: r.ShrinkageVolume.StringFixed(4),
			ShrinkageAmount: r.ShrinkageAmount.StringFixed(4),
			DaysApproved:    r.DaysApproved,
		}
		if r.Station != nil {
			resp.StationName = r.Station.Name
		}
		result = append(result, resp)
	}
	return result, nil
}

func allComplete(stations []repository.StationCompleteness) bool {
	if len(stations) == 0 {
		return false
	}
	for _, st := range stations {
		if st.DaysReported < st.DaysInMonth || st.DaysApproved < st.DaysInMonth {
			return false
		}
	}
	return true
}
