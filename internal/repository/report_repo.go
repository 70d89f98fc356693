package repository

import (
	"context"
	"errors"
	"time"

	"custodia/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportFilter narrows report listings. Zero values mean "no filter"; the
// query is composed from parameters, never concatenated strings.
type ReportFilter struct {
	ZoneID    *uuid.UUID
	StationID *uuid.UUID
	Status    model.ReportStatus
	From      *time.Time
	To        *time.Time
}

// StationCompleteness is one row of the can-close matrix: how many days of
// the month a station has reported and how many of those are approved.
type StationCompleteness struct {
	StationID    uuid.UUID `json:"station_id"`
	StationName  string    `json:"station_name"`
	DaysInMonth  int       `json:"days_in_month"`
	DaysReported int       `json:"days_reported"`
	DaysApproved int       `json:"days_approved"`
}

// RollupRow is the grouped aggregate of approved line items used to build
// monthly rollups.
type RollupRow struct {
	StationID       uuid.UUID
	Product         model.FuelProduct
	LitersSold      decimal.Decimal
	SaleAmount      decimal.Decimal
	ShrinkageVolume decimal.Decimal
	ShrinkageAmount decimal.Decimal
	DaysApproved    int
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.SalesReport) error
	Save(ctx context.Context, report *model.SalesReport) error
	SaveItem(ctx context.Context, item *model.FuelLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SalesReport, error)
	FindByStationAndDate(ctx context.Context, stationID uuid.UUID, date time.Time) (*model.SalesReport, error)
	ExistsForStationAndDate(ctx context.Context, stationID uuid.UUID, date time.Time) (bool, error)
	List(ctx context.Context, filter ReportFilter, page, limit int) ([]model.SalesReport, int64, error)
	SumApprovedShrinkage(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	CompletenessByStation(ctx context.Context, zoneID uuid.UUID, from, to time.Time) ([]StationCompleteness, error)
	ApprovedRollups(ctx context.Context, zoneID uuid.UUID, from, to time.Time) ([]RollupRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.SalesReport) error {
	return GetDB(ctx, r.db).Create(report).Error
}

func (r *reportRepository) Save(ctx context.Context, report *model.SalesReport) error {
	return GetDB(ctx, r.db).Save(report).Error
}

func (r *reportRepository) SaveItem(ctx context.Context, item *model.FuelLineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesReport, error) {
	var report model.SalesReport
	err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Station").
		First(&report, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByStationAndDate(ctx context.Context, stationID uuid.UUID, date time.Time) (*model.SalesReport, error) {
	var report model.SalesReport
	err := GetDB(ctx, r.db).
		Preload("Items").
		Where("station_id = ? AND report_date = ?", stationID, date).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) ExistsForStationAndDate(ctx context.Context, stationID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SalesReport{}).
		Where("station_id = ? AND report_date = ?", stationID, date).
		Count(&count).Error
	return count > 0, err
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter, page, limit int) ([]model.SalesReport, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.ZoneID != nil {
			q = q.Joins("JOIN stations ON stations.id = sales_reports.station_id").
				Where("stations.zone_id = ?", *filter.ZoneID)
		}
		if filter.StationID != nil {
			q = q.Where("sales_reports.station_id = ?", *filter.StationID)
		}
		if filter.Status != "" {
			q = q.Where("sales_reports.status = ?", filter.Status)
		}
		if filter.From != nil {
			q = q.Where("sales_reports.report_date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("sales_reports.report_date <= ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.SalesReport{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []model.SalesReport
	offset := (page - 1) * limit
	err := apply(db.Model(&model.SalesReport{})).
		Preload("Items").
		Preload("Station").
		Preload("Reviewer").
		Order("report_date DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *reportRepository) SumApprovedShrinkage(ctx context.Context, stationID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := GetDB(ctx, r.db).Model(&model.FuelLineItem{}).
		Select("COALESCE(SUM(fuel_line_items.shrinkage_amount), 0)").
		Joins("JOIN sales_reports ON sales_reports.id = fuel_line_items.report_id").
		Where("sales_reports.station_id = ?", stationID).
		Where("sales_reports.status = ?", model.ReportApproved).
		Where("sales_reports.report_date >= ? AND sales_reports.report_date <= ?", from, to).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *reportRepository) CompletenessByStation(ctx context.Context, zoneID uuid.UUID, from, to time.Time) ([]StationCompleteness, error) {
	type row struct {
		StationID    uuid.UUID
		DaysReported int
		DaysApproved int
	}
	var counted []row
	err := GetDB(ctx, r.db).Model(&model.SalesReport{}).
		Select("sales_reports.station_id AS station_id, "+
			"COUNT(*) AS days_reported, "+
			"SUM(CASE WHEN sales_reports.status = ? THEN 1 ELSE 0 END) AS days_approved",
			model.ReportApproved).
		Joins("JOIN stations ON stations.id = sales_reports.station_id").
		Where("stations.zone_id = ?", zoneID).
		Where("sales_reports.report_date >= ? AND sales_reports.report_date <= ?", from, to).
		Group("sales_reports.station_id").
		Scan(&counted).Error
	if err != nil {
		return nil, err
	}

	byStation := make(map[uuid.UUID]row, len(counted))
	for _, c := range counted {
		byStation[c.StationID] = c
	}

	var stations []model.Station
	if err := GetDB(ctx, r.db).Where("zone_id = ? AND active = ?", zoneID, true).Order("name").Find(&stations).Error; err != nil {
		return nil, err
	}

	daysInMonth := to.Day()
	result := make([]StationCompleteness, 0, len(stations))
	for _, st := range stations {
		c := byStation[st.ID]
		result = append(result, StationCompleteness{
			StationID:    st.ID,
			StationName:  st.Name,
			DaysInMonth:  daysInMonth,
			DaysReported: c.DaysReported,
			DaysApproved: c.DaysApproved,
		})
	}
	return result, nil
}

func (r *reportRepository) ApprovedRollups(ctx context.Context, zoneID uuid.UUID, from, to time.Time) ([]RollupRow, error) {
	var rows []RollupRow
	err := GetDB(ctx, r.db).Model(&model.FuelLineItem{}).
		Select("sales_reports.station_id AS station_id, "+
			"fuel_line_items.product AS product, "+
			"COALESCE(SUM(fuel_line_items.liters_sold), 0) AS liters_sold, "+
			"COALESCE(SUM(fuel_line_items.amount), 0) AS sale_amount, "+
			"COALESCE(SUM(fuel_line_items.shrinkage_volume), 0) AS shrinkage_volume, "+
			"COALESCE(SUM(fuel_line_items.shrinkage_amount), 0) AS shrinkage_amount, "+
			"COUNT(*) AS days_approved").
		Joins("JOIN sales_reports ON sales_reports.id = fuel_line_items.report_id").
		Joins("JOIN stations ON stations.id = sales_reports.station_id").
		Where("stations.zone_id = ?", zoneID).
		Where("sales_reports.status = ?", model.ReportApproved).
		Where("sales_reports.report_date >= ? AND sales_reports.report_date <= ?", from, to).
		Group("sales_reports.station_id, fuel_line_items.product").
		Order("sales_reports.station_id, fuel_line_items.product").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
