package service

import (
	"context"
	"fmt"
	"time"

	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type InitiateDeliveryRequest struct {
	Kind         string          `json:"kind" binding:"required,oneof=STATION_TO_ZONE ZONE_TO_DIRECTION"`
	StationID    string          `json:"station_id"`
	ZoneID       string          `json:"zone_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Concept      string          `json:"concept"`
	Date         string          `json:"date" binding:"required"` // YYYY-MM-DD
	EvidencePath string          `json:"evidence_path"`
	AddresseeID  string          `json:"addressee_id"`
}

type DeliveryResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	StationID     *string `json:"station_id"`
	StationName   string  `json:"station_name,omitempty"`
	ZoneID        string  `json:"zone_id"`
	Amount        string  `json:"amount"`
	Concept       string  `json:"concept"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	EvidencePath  string  `json:"evidence_path,omitempty"`
	AddresseeID   *string `json:"addressee_id"`
	InitiatorName string  `json:"initiator_name,omitempty"`
	ConfirmerName string  `json:"confirmer_name,omitempty"`
	ConfirmedAt   *string `json:"confirmed_at"`
}

type DeliveryListFilter struct {
	Kind      string
	Status    string
	StationID string
	ZoneID    string
}

// --- Interface ---

type DeliveryService interface {
	Initiate(ctx context.Context, actor Actor, req InitiateDeliveryRequest) (DeliveryResponse, error)
	Confirm(ctx context.Context, actor Actor, deliveryID string) (DeliveryResponse, error)
	List(ctx context.Context, actor Actor, filter DeliveryListFilter, page, limit int) ([]DeliveryResponse, int64, error)
	FindConfirmed(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
}

type deliveryService struct {
	deliveryRepo   repository.DeliveryRepository
	stationRepo    repository.StationRepository
	userRepo       repository.UserRepository
	settlementRepo repository.SettlementRepository
	balances       BalanceService
	txManager      repository.TransactionManager
	audit          *auditor
	hub            Broadcaster
	log            zerolog.Logger
}

func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	stationRepo repository.StationRepository,
	userRepo repository.UserRepository,
	settlementRepo repository.SettlementRepository,
	balances BalanceService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub Broadcaster,
	log zerolog.Logger,
) DeliveryService {
	return &deliveryService{
		deliveryRepo:   deliveryRepo,
		stationRepo:    stationRepo,
		userRepo:       userRepo,
		settlementRepo: settlementRepo,
		balances:       balances,
		txManager:      txManager,
		audit:          newAuditor(auditRepo, log),
		hub:            hub,
		log:            log,
	}
}

// --- Implementation ---

func (s *deliveryService) Initiate(ctx context.Context, actor Actor, req InitiateDeliveryRequest) (DeliveryResponse, error) {
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		return DeliveryResponse{}, fmt.Errorf("%w: invalid zone_id", ErrValidation)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return DeliveryResponse{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}
	date = normalizeDate(date)
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return DeliveryResponse{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	delivery := model.Delivery{
		Kind:        model.DeliveryKind(req.Kind),
		ZoneID:      zoneID,
		Amount:      req.Amount,
		Concept:     req.Concept,
		DeliveredAt: date,
		Status:      model.DeliveryPendingSignature,
		InitiatedBy: actor.ID,
	}

	switch delivery.Kind {
	case model.DeliveryStationToZone, model.DeliveryZoneToDirection:
	default:
		return DeliveryResponse{}, fmt.Errorf("%w: unknown delivery kind %q", ErrValidation, req.Kind)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Kind-specific checks run inside the transaction so two concurrent
		// initiations cannot both pass the same balance or settlement state.
		switch delivery.Kind {
		case model.DeliveryStationToZone:
			if prepErr := s.prepareStationToZone(txCtx, actor, req, date, &delivery); prepErr != nil {
				return prepErr
			}
		case model.DeliveryZoneToDirection:
			if prepErr := s.prepareZoneToDirection(txCtx, actor, req, date, &delivery); prepErr != nil {
				return prepErr
			}
		}

		if createErr := s.deliveryRepo.Create(txCtx, &delivery); createErr != nil {
			return fmt.Errorf("failed to create delivery: %w", createErr)
		}
		s.audit.record(txCtx, actor.ID, model.ActionInitiateDelivery, "delivery", delivery.ID.String(),
			nil, delivery, fmt.Sprintf("%s delivery of %s", delivery.Kind, delivery.Amount.StringFixed(4)))
		return nil
	})
	if err != nil {
		return DeliveryResponse{}, err
	}

	return toDeliveryResponse(delivery), nil
}

// prepareStationToZone validates a station→zone handoff: evidence is
// mandatory, the initiator must hold the station, and the month must not be
// settled. Over-delivery is allowed and only logged; stations may hand in
// more than the computed balance to cover earlier shortfalls.
func (s *deliveryService) prepareStationToZone(ctx context.Context, actor Actor, req InitiateDeliveryRequest, date time.Time, delivery *model.Delivery) error {
	if req.StationID == "" {
		return fmt.Errorf("%w: station_id is required for station deliveries", ErrValidation)
	}
	stationID, err := uuid.Parse(req.StationID)
	if err != nil {
		return fmt.Errorf("%w: invalid station_id", ErrValidation)
	}
	if req.EvidencePath == "" {
		return fmt.Errorf("%w: evidence attachment is required for station deliveries", ErrValidation)
	}

	station, err := s.stationRepo.FindByID(ctx, stationID)
	if err != nil {
		return fmt.Errorf("%w: station not found", ErrValidation)
	}
	if station.ZoneID != delivery.ZoneID {
		return fmt.Errorf("%w: station does not belong to zone", ErrValidation)
	}
	if !actor.HasStation(stationID) {
		return fmt.Errorf("%w: actor is not assigned to station %s", ErrAuthorization, station.Name)
	}

	if err := s.ensureSettlementOpen(ctx, delivery.ZoneID, date); err != nil {
		return err
	}

	balance, err := s.balances.StationBalance(ctx, stationID, date.Year(), int(date.Month()))
	if err != nil {
		return err
	}
	if roundAmount(req.Amount).GreaterThan(balance.Balance) {
		s.log.Warn().
			Str("station_id", stationID.String()).
			Str("amount", req.Amount.StringFixed(4)).
			Str("balance", balance.Balance.StringFixed(4)).
			Msg("over-delivery: amount exceeds computed station balance")
	}

	delivery.StationID = &stationID
	delivery.EvidencePath = req.EvidencePath
	return nil
}

// prepareZoneToDirection validates an upward handoff: the addressee must
// hold a direction-class role and the amount may not exceed the zone's
// computed balance. The zone's own settlement lock does not apply here:
// money flowing up to direction stays possible after the zone closes its
// month.
func (s *deliveryService) prepareZoneToDirection(ctx context.Context, actor Actor, req InitiateDeliveryRequest, date time.Time, delivery *model.Delivery) error {
	if req.AddresseeID == "" {
		return fmt.Errorf("%w: addressee_id is required for direction deliveries", ErrValidation)
	}
	addresseeID, err := uuid.Parse(req.AddresseeID)
	if err != nil {
		return fmt.Errorf("%w: invalid addressee_id", ErrValidation)
	}
	if !actor.HasZone(delivery.ZoneID) {
		return fmt.Errorf("%w: actor is not assigned to this zone", ErrAuthorization)
	}

	addressee, err := s.userRepo.FindByID(ctx, addresseeID)
	if err != nil {
		return fmt.Errorf("%w: addressee not found", ErrValidation)
	}
	if addressee.Role != model.RoleDirection && addressee.Role != model.RoleAdmin {
		return fmt.Errorf("%w: addressee must hold a direction role", ErrValidation)
	}

	balance, err := s.balances.ZoneBalance(ctx, delivery.ZoneID, date.Year(), int(date.Month()))
	if err != nil {
		return err
	}
	if roundAmount(req.Amount).GreaterThan(balance.Balance) {
		return fmt.Errorf("%w: delivery of %s exceeds zone balance %s",
			ErrInsufficientBalance, req.Amount.StringFixed(4), balance.Balance.StringFixed(4))
	}

	delivery.AddresseeID = &addresseeID
	return nil
}

func (s *deliveryService) Confirm(ctx context.Context, actor Actor, deliveryID string) (DeliveryResponse, error) {
	id, err := uuid.Parse(deliveryID)
	if err != nil {
		return DeliveryResponse{}, fmt.Errorf("%w: invalid delivery id", ErrValidation)
	}

	var delivery *model.Delivery
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		delivery, findErr = s.deliveryRepo.FindByID(txCtx, id)
		if findErr != nil {
			return fmt.Errorf("%w: delivery not found", ErrValidation)
		}
		if delivery.Status != model.DeliveryPendingSignature {
			return fmt.Errorf("%w: delivery is already %s", ErrInvalidTransition, delivery.Status)
		}
		if scopeErr := s.checkConfirmScope(actor, delivery); scopeErr != nil {
			return scopeErr
		}

		before := *delivery
		now := time.Now()
		delivery.Status = model.DeliveryConfirmed
		delivery.ConfirmedBy = &actor.ID
		delivery.ConfirmedAt = &now

		if saveErr := s.deliveryRepo.Save(txCtx, delivery); saveErr != nil {
			return fmt.Errorf("failed to confirm delivery: %w", saveErr)
		}
		s.audit.record(txCtx, actor.ID, model.ActionConfirmDelivery, "delivery", delivery.ID.String(),
			before, delivery, "counter-signature")
		return nil
	})
	if err != nil {
		return DeliveryResponse{}, err
	}

	if s.hub != nil {
		s.hub.Publish("delivery.confirmed", map[string]interface{}{
			"delivery_id": delivery.ID.String(),
			"kind":        delivery.Kind,
			"amount":      delivery.Amount.StringFixed(4),
		})
	}

	return toDeliveryResponse(*delivery), nil
}

// checkConfirmScope enforces the counter-party rule: the zone side signs
// station→zone deliveries, the named addressee signs zone→direction ones.
// Admins may sign either.
func (s *deliveryService) checkConfirmScope(actor Actor, delivery *model.Delivery) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	switch delivery.Kind {
	case model.DeliveryStationToZone:
		if actor.Role != model.RoleZone || !actor.HasZone(delivery.ZoneID) {
			return fmt.Errorf("%w: only the receiving zone may confirm this delivery", ErrAuthorization)
		}
	case model.DeliveryZoneToDirection:
		if delivery.AddresseeID == nil || *delivery.AddresseeID != actor.ID {
			return fmt.Errorf("%w: only the named addressee may confirm this delivery", ErrAuthorization)
		}
	}
	return nil
}

func (s *deliveryService) List(ctx context.Context, actor Actor, filter DeliveryListFilter, page, limit int) ([]DeliveryResponse, int64, error) {
	repoFilter := repository.DeliveryFilter{
		Kind:   model.DeliveryKind(filter.Kind),
		Status: model.DeliveryStatus(filter.Status),
	}
	if filter.StationID != "" {
		id, err := uuid.Parse(filter.StationID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid station_id", ErrValidation)
		}
		repoFilter.StationID = &id
	}
	if filter.ZoneID != "" {
		id, err := uuid.Parse(filter.ZoneID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid zone_id", ErrValidation)
		}
		repoFilter.ZoneID = &id
	}

	deliveries, total, err := s.deliveryRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}

	result := make([]DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		result = append(result, toDeliveryResponse(d))
	}
	return result, total, nil
}

func (s *deliveryService) FindConfirmed(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	delivery, err := s.deliveryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: delivery not found", ErrValidation)
	}
	if delivery.Status != model.DeliveryConfirmed {
		return nil, fmt.Errorf("%w: delivery is not confirmed yet", ErrInvalidTransition)
	}
	return delivery, nil
}

// ensureSettlementOpen blocks station→zone deliveries once the zone's
// accounting settlement for the month is closed.
func (s *deliveryService) ensureSettlementOpen(ctx context.Context, zoneID uuid.UUID, date time.Time) error {
	row, err := s.settlementRepo.FindZoneRow(ctx, zoneID, date.Year(), int(date.Month()))
	if err != nil {
		return fmt.Errorf("failed to check settlement: %w", err)
	}
	if row != nil && row.Status == model.SettlementClosed {
		return fmt.Errorf("%w: settlement %d-%02d is closed for this zone",
			ErrPeriodLocked, date.Year(), int(date.Month()))
	}
	return nil
}

// --- Helpers ---

func toDeliveryResponse(d model.Delivery) DeliveryResponse {
	resp := DeliveryResponse{
		ID:           d.ID.String(),
		Kind:         string(d.Kind),
		ZoneID:       d.ZoneID.String(),
		Amount:       d.Amount.StringFixed(4),
		Concept:      d.Concept,
		Date:         d.DeliveredAt.Format("2006-01-02"),
		Status:       string(d.Status),
		EvidencePath: d.EvidencePath,
	}
	if d.StationID != nil {
		s := d.StationID.String()
		resp.StationID = &s
	}
	if d.Station != nil {
		resp.StationName = d.Station.Name
	}
	if d.AddresseeID != nil {
		s := d.AddresseeID.String()
		resp.AddresseeID = &s
	}
	if d.Initiator != nil {
		resp.InitiatorName = d.Initiator.Username
	}
	if d.Confirmer != nil {
		resp.ConfirmerName = d.Confirmer.Username
	}
	if d.ConfirmedAt != nil {
		s := d.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}
	return resp
}
