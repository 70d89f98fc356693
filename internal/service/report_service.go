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

type CreateReportRequest struct {
	StationID  string          `json:"station_id" binding:"required"`
	Date       string          `json:"date" binding:"required"` // YYYY-MM-DD
	OilsAmount decimal.Decimal `json:"oils_amount"`
	Items      []LineItemInput `json:"items" binding:"required"`
}

type UpdateReportRequest struct {
	OilsAmount *decimal.Decimal `json:"oils_amount"`
	Items      []LineItemInput  `json:"items" binding:"required"`
}

type TransitionReportRequest struct {
	Status  string `json:"status" binding:"required,oneof=APPROVED REJECTED PENDING"`
	Comment string `json:"comment"`
}

type ReportListFilter struct {
	ZoneID    string
	StationID string
	Status    string
	From      string
	To        string
}

type LineItemResponse struct {
	Product          string `json:"product"`
	Price            string `json:"price"`
	LitersSold       string `json:"liters_sold"`
	Amount           string `json:"amount"`
	ShrinkageVolume  string `json:"shrinkage_volume"`
	ShrinkageAmount  string `json:"shrinkage_amount"`
	ShrinkagePct     string `json:"shrinkage_pct"`
	OpeningInventory string `json:"opening_inventory"`
	Purchases        string `json:"purchases"`
	CCT              string `json:"cct"`
	DiscountVolume   string `json:"discount_volume"`
	DC               string `json:"dc"`
	DiscountDiff     string `json:"discount_diff"`
	ClosingInventory string `json:"closing_inventory"`
	ReportedClosing  string `json:"reported_closing"`
	EfficiencyReal   string `json:"efficiency_real"`
	EfficiencyAmount string `json:"efficiency_amount"`
	EfficiencyPct    string `json:"efficiency_pct"`
}

type ReportResponse struct {
	ID            string             `json:"id"`
	StationID     string             `json:"station_id"`
	StationName   string             `json:"station_name,omitempty"`
	Date          string             `json:"date"`
	OilsAmount    string             `json:"oils_amount"`
	Status        string             `json:"status"`
	ReviewedBy    *string            `json:"reviewed_by"`
	ReviewerName  string             `json:"reviewer_name,omitempty"`
	ReviewedAt    *string            `json:"reviewed_at"`
	ReviewComment string             `json:"review_comment"`
	Items         []LineItemResponse `json:"items"`
	CreatedAt     string             `json:"created_at"`
}

// --- Interface ---

type ReportService interface {
	Create(ctx context.Context, actor Actor, req CreateReportRequest) (ReportResponse, error)
	Update(ctx context.Context, actor Actor, reportID string, req UpdateReportRequest) (ReportResponse, error)
	Transition(ctx context.Context, actor Actor, reportID string, req TransitionReportRequest) (ReportResponse, error)
	List(ctx context.Context, actor Actor, filter ReportListFilter, page, limit int) ([]ReportResponse, int64, error)
}

// Broadcaster pushes domain events to connected dashboard clients.
type Broadcaster interface {
	Publish(eventType string, payload interface{})
}

type reportService struct {
	reportRepo  repository.ReportRepository
	stationRepo repository.StationRepository
	closureRepo repository.ClosureRepository
	txManager   repository.TransactionManager
	audit       *auditor
	hub         Broadcaster
	log         zerolog.Logger
}

func NewReportService(
	reportRepo repository.ReportRepository,
	stationRepo repository.StationRepository,
	closureRepo repository.ClosureRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub Broadcaster,
	log zerolog.Logger,
) ReportService {
	return &reportService{
		reportRepo:  reportRepo,
		stationRepo: stationRepo,
		closureRepo: closureRepo,
		txManager:   txManager,
		audit:       newAuditor(auditRepo, log),
		hub:         hub,
		log:         log,
	}
}

// --- Implementation ---

func (s *reportService) Create(ctx context.Context, actor Actor, req CreateReportRequest) (ReportResponse, error) {
	stationID, err := uuid.Parse(req.StationID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: invalid station_id", ErrValidation)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}
	date = normalizeDate(date)

	station, err := s.stationRepo.FindByID(ctx, stationID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: station not found", ErrValidation)
	}

	switch actor.Role {
	case model.RoleStation, model.RoleAdmin:
		if !actor.HasStation(stationID) {
			return ReportResponse{}, fmt.Errorf("%w: actor is not assigned to station %s", ErrAuthorization, station.Name)
		}
	default:
		return ReportResponse{}, fmt.Errorf("%w: role %s cannot capture reports", ErrAuthorization, actor.Role)
	}

	if err := s.ensurePeriodOpen(ctx, station.ZoneID, date); err != nil {
		return ReportResponse{}, err
	}

	if err := s.validateItems(station, req.Items); err != nil {
		return ReportResponse{}, err
	}

	exists, err := s.reportRepo.ExistsForStationAndDate(ctx, stationID, date)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("failed to check report uniqueness: %w", err)
	}
	if exists {
		return ReportResponse{}, fmt.Errorf("%w: report for %s on %s already exists", ErrValidation, station.Name, req.Date)
	}

	items := make([]model.FuelLineItem, 0, len(req.Items))
	for _, in := range req.Items {
		carried, carryErr := s.carryForwardOpening(ctx, stationID, date, in)
		if carryErr != nil {
			return ReportResponse{}, carryErr
		}
		items = append(items, computeLineItem(carried))
	}

	report := model.SalesReport{
		StationID:  stationID,
		ReportDate: date,
		OilsAmount: req.OilsAmount,
		Status:     model.ReportPending,
		CreatedBy:  actor.ID,
		Items:      items,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.reportRepo.Create(txCtx, &report); createErr != nil {
			return fmt.Errorf("failed to create report: %w", createErr)
		}
		// Out-of-order capture: a later day may already exist and must
		// inherit this report's closing.
		if propErr := s.propagateClosing(txCtx, &report, nil); propErr != nil {
			return propErr
		}
		s.audit.record(txCtx, actor.ID, model.ActionCreateReport, "sales_report", report.ID.String(),
			nil, report, fmt.Sprintf("daily report %s for %s", req.Date, station.Name))
		return nil
	})
	if err != nil {
		return ReportResponse{}, err
	}

	report.Station = station
	return toReportResponse(report), nil
}

func (s *reportService) Update(ctx context.Context, actor Actor, reportID string, req UpdateReportRequest) (ReportResponse, error) {
	id, err := uuid.Parse(reportID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: invalid report id", ErrValidation)
	}

	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: report not found", ErrValidation)
	}
	station := report.Station

	if err := s.checkEditRules(actor, report); err != nil {
		return ReportResponse{}, err
	}
	if err := s.ensurePeriodOpen(ctx, station.ZoneID, report.ReportDate); err != nil {
		return ReportResponse{}, err
	}
	if err := s.validateItems(station, req.Items); err != nil {
		return ReportResponse{}, err
	}

	before := *report

	previousClosing := make(map[model.FuelProduct]decimal.Decimal, len(report.Items))
	for _, item := range report.Items {
		previousClosing[item.Product] = item.ReportedClosing
	}

	newItems := make([]model.FuelLineItem, 0, len(req.Items))
	for _, in := range req.Items {
		carried, carryErr := s.carryForwardOpening(ctx, report.StationID, report.ReportDate, in)
		if carryErr != nil {
			return ReportResponse{}, carryErr
		}
		item := computeLineItem(carried)
		if existing := report.ItemFor(in.Product); existing != nil {
			item.ID = existing.ID
			item.ReportID = existing.ReportID
			item.CreatedAt = existing.CreatedAt
		} else {
			item.ReportID = report.ID
		}
		newItems = append(newItems, item)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.OilsAmount != nil {
			report.OilsAmount = *req.OilsAmount
		}
		report.Items = nil
		if saveErr := s.reportRepo.Save(txCtx, report); saveErr != nil {
			return fmt.Errorf("failed to update report: %w", saveErr)
		}
		for i := range newItems {
			if saveErr := s.reportRepo.SaveItem(txCtx, &newItems[i]); saveErr != nil {
				return fmt.Errorf("failed to save line item: %w", saveErr)
			}
		}
		report.Items = newItems

		if propErr := s.propagateClosing(txCtx, report, previousClosing); propErr != nil {
			return propErr
		}

		s.audit.record(txCtx, actor.ID, model.ActionUpdateReport, "sales_report", report.ID.String(),
			before, report, "line items updated")
		return nil
	})
	if err != nil {
		return ReportResponse{}, err
	}

	return toReportResponse(*report), nil
}

func (s *reportService) Transition(ctx context.Context, actor Actor, reportID string, req TransitionReportRequest) (ReportResponse, error) {
	id, err := uuid.Parse(reportID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: invalid report id", ErrValidation)
	}
	target := model.ReportStatus(req.Status)
	switch target {
	case model.ReportPending, model.ReportApproved, model.ReportRejected:
	default:
		return ReportResponse{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	var report *model.SalesReport
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		report, findErr = s.reportRepo.FindByID(txCtx, id)
		if findErr != nil {
			return fmt.Errorf("%w: report not found", ErrValidation)
		}

		if scopeErr := s.checkTransitionScope(actor, report); scopeErr != nil {
			return scopeErr
		}
		if !transitionAllowed(actor.Role, report.Status, target) {
			return fmt.Errorf("%w: %s cannot move report from %s to %s",
				ErrInvalidTransition, actor.Role, report.Status, target)
		}

		before := *report
		now := time.Now()
		report.Status = target
		report.ReviewedBy = &actor.ID
		report.ReviewedAt = &now
		report.ReviewComment = req.Comment

		items := report.Items
		report.Items = nil
		if saveErr := s.reportRepo.Save(txCtx, report); saveErr != nil {
			return fmt.Errorf("failed to save transition: %w", saveErr)
		}
		report.Items = items

		s.audit.record(txCtx, actor.ID, model.ActionTransitionReport, "sales_report", report.ID.String(),
			before, report, fmt.Sprintf("status %s -> %s", before.Status, target))
		return nil
	})
	if err != nil {
		return ReportResponse{}, err
	}

	if s.hub != nil {
		s.hub.Publish("report.transitioned", map[string]interface{}{
			"report_id":  report.ID.String(),
			"station_id": report.StationID.String(),
			"status":     report.Status,
		})
	}

	return toReportResponse(*report), nil
}

func (s *reportService) List(ctx context.Context, actor Actor, filter ReportListFilter, page, limit int) ([]ReportResponse, int64, error) {
	repoFilter := repository.ReportFilter{}
	if filter.ZoneID != "" {
		id, err := uuid.Parse(filter.ZoneID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid zone_id", ErrValidation)
		}
		repoFilter.ZoneID = &id
	}
	if filter.StationID != "" {
		id, err := uuid.Parse(filter.StationID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid station_id", ErrValidation)
		}
		repoFilter.StationID = &id
	}
	if filter.Status != "" {
		repoFilter.Status = model.ReportStatus(filter.Status)
	}
	if filter.From != "" {
		from, err := time.Parse("2006-01-02", filter.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid from date", ErrValidation)
		}
		from = normalizeDate(from)
		repoFilter.From = &from
	}
	if filter.To != "" {
		to, err := time.Parse("2006-01-02", filter.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid to date", ErrValidation)
		}
		to = normalizeDate(to)
		repoFilter.To = &to
	}

	reports, total, err := s.reportRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	result := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		result = append(result, toReportResponse(r))
	}
	return result, total, nil
}

// --- Rules ---

// transitionAllowed is the exhaustive role/state transition table.
// Station actors review their own stations' reports; zone actors may only
// kick an approved report back for correction; direction actors are
// read-only; admins may force anything except no-op transitions.
func transitionAllowed(role model.Role, from, to model.ReportStatus) bool {
	if from == to {
		return false
	}
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleStation:
		return from == model.ReportPending &&
			(to == model.ReportApproved || to == model.ReportRejected)
	case model.RoleZone:
		return from == model.ReportApproved && to == model.ReportRejected
	case model.RoleDirection:
		return false
	}
	return false
}

func (s *reportService) checkTransitionScope(actor Actor, report *model.SalesReport) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStation:
		if !actor.HasStation(report.StationID) {
			return fmt.Errorf("%w: actor is not assigned to this station", ErrAuthorization)
		}
	case model.RoleZone:
		if report.Station == nil || !actor.HasZone(report.Station.ZoneID) {
			return fmt.Errorf("%w: report is outside the actor's zone", ErrAuthorization)
		}
	case model.RoleDirection:
		return fmt.Errorf("%w: direction actors are read-only", ErrAuthorization)
	}
	return nil
}

// checkEditRules enforces who may edit a report in which state: station
// actors edit pending reports of their stations, zone actors edit approved
// reports of their zone (post-approval correction), admins edit anything.
func (s *reportService) checkEditRules(actor Actor, report *model.SalesReport) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStation:
		if !actor.HasStation(report.StationID) {
			return fmt.Errorf("%w: actor is not assigned to this station", ErrAuthorization)
		}
		if report.Status != model.ReportPending {
			return fmt.Errorf("%w: station actors may only edit pending reports", ErrInvalidTransition)
		}
	case model.RoleZone:
		if report.Station == nil || !actor.HasZone(report.Station.ZoneID) {
			return fmt.Errorf("%w: report is outside the actor's zone", ErrAuthorization)
		}
		if report.Status != model.ReportApproved {
			return fmt.Errorf("%w: zone actors may only edit approved reports", ErrInvalidTransition)
		}
	default:
		return fmt.Errorf("%w: role %s cannot edit reports", ErrAuthorization, actor.Role)
	}
	return nil
}

func (s *reportService) validateItems(station *model.Station, items []LineItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrValidation)
	}
	seen := make(map[model.FuelProduct]bool, len(items))
	for _, in := range items {
		switch in.Product {
		case model.ProductPremium, model.ProductMagna, model.ProductDiesel:
		default:
			return fmt.Errorf("%w: unknown product %q", ErrValidation, in.Product)
		}
		if seen[in.Product] {
			return fmt.Errorf("%w: duplicate line item for %s", ErrValidation, in.Product)
		}
		seen[in.Product] = true
		if !station.SellsProduct(in.Product) {
			return fmt.Errorf("%w: station %s does not sell %s", ErrValidation, station.Name, in.Product)
		}
		if in.Price.IsNegative() || in.LitersSold.IsNegative() || in.ShrinkageVolume.IsNegative() {
			return fmt.Errorf("%w: price, liters and shrinkage must not be negative", ErrValidation)
		}
	}
	return nil
}

// ensurePeriodOpen rejects capture and edits once the zone's operational
// closure for the report's month is closed.
func (s *reportService) ensurePeriodOpen(ctx context.Context, zoneID uuid.UUID, date time.Time) error {
	closure, err := s.closureRepo.FindByZonePeriod(ctx, zoneID, date.Year(), int(date.Month()))
	if err != nil {
		return fmt.Errorf("failed to check operational closure: %w", err)
	}
	if closure != nil && closure.Closed {
		return fmt.Errorf("%w: operational closure %d-%02d is closed for this zone",
			ErrPeriodLocked, date.Year(), int(date.Month()))
	}
	return nil
}

// carryForwardOpening replaces the caller-supplied opening inventory with
// the prior calendar day's reported closing for the same station/product.
// The 1st of the month takes the caller's value; so does any day whose
// prior report has not been captured yet.
func (s *reportService) carryForwardOpening(ctx context.Context, stationID uuid.UUID, date time.Time, in LineItemInput) (LineItemInput, error) {
	if date.Day() == 1 {
		return in, nil
	}
	prior, err := s.reportRepo.FindByStationAndDate(ctx, stationID, date.AddDate(0, 0, -1))
	if err != nil {
		return in, fmt.Errorf("failed to load prior day report: %w", err)
	}
	if prior == nil {
		return in, nil
	}
	if priorItem := prior.ItemFor(in.Product); priorItem != nil {
		in.OpeningInventory = priorItem.ReportedClosing
	}
	return in, nil
}

// propagateClosing pushes a changed reported-closing (IFFB) into the next
// day's report: its opening inventory becomes the new closing and its
// derived chain is recomputed. The 1st of a month never inherits. A nil
// previousClosing map treats every closing as changed (fresh capture).
func (s *reportService) propagateClosing(ctx context.Context, report *model.SalesReport, previousClosing map[model.FuelProduct]decimal.Decimal) error {
	nextDate := report.ReportDate.AddDate(0, 0, 1)
	if nextDate.Day() == 1 {
		return nil
	}

	var next *model.SalesReport
	for _, item := range report.Items {
		prev, had := previousClosing[item.Product]
		if had && prev.Equal(item.ReportedClosing) {
			continue
		}

		if next == nil {
			var err error
			next, err = s.reportRepo.FindByStationAndDate(ctx, report.StationID, nextDate)
			if err != nil {
				return fmt.Errorf("failed to load next day report: %w", err)
			}
			if next == nil {
				return nil
			}
		}

		nextItem := next.ItemFor(item.Product)
		if nextItem == nil {
			continue
		}
		rederiveFromOpening(nextItem, item.ReportedClosing)
		if err := s.reportRepo.SaveItem(ctx, nextItem); err != nil {
			return fmt.Errorf("failed to propagate opening inventory: %w", err)
		}
	}
	return nil
}

// --- Helpers ---

func toReportResponse(r model.SalesReport) ReportResponse {
	resp := ReportResponse{
		ID:            r.ID.String(),
		StationID:     r.StationID.String(),
		Date:          r.ReportDate.Format("2006-01-02"),
		OilsAmount:    r.OilsAmount.StringFixed(4),
		Status:        string(r.Status),
		ReviewComment: r.ReviewComment,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.Station != nil {
		resp.StationName = r.Station.Name
	}
	if r.ReviewedBy != nil {
		s := r.ReviewedBy.String()
		resp.ReviewedBy = &s
	}
	if r.Reviewer != nil {
		resp.ReviewerName = r.Reviewer.Username
	}
	if r.ReviewedAt != nil {
		s := r.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}

	resp.Items = make([]LineItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			Product:          string(item.Product),
			Price:            item.Price.StringFixed(4),
			LitersSold:       item.LitersSold.StringFixed(4),
			Amount:           item.Amount.StringFixed(4),
			ShrinkageVolume:  item.ShrinkageVolume.StringFixed(4),
			ShrinkageAmount:  item.ShrinkageAmount.StringFixed(4),
			ShrinkagePct:     item.ShrinkagePct.StringFixed(4),
			OpeningInventory: item.OpeningInventory.StringFixed(4),
			Purchases:        item.Purchases.StringFixed(4),
			CCT:              item.CCT.StringFixed(4),
			DiscountVolume:   item.DiscountVolume.StringFixed(4),
			DC:               item.DC.StringFixed(4),
			DiscountDiff:     item.DiscountDiff.StringFixed(4),
			ClosingInventory: item.ClosingInventory.StringFixed(4),
			ReportedClosing:  item.ReportedClosing.StringFixed(4),
			EfficiencyReal:   item.EfficiencyReal.StringFixed(4),
			EfficiencyAmount: item.EfficiencyAmount.StringFixed(4),
			EfficiencyPct:    item.EfficiencyPct.StringFixed(4),
		})
	}
	return resp
}
