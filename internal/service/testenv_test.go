package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"custodia/internal/database"
	"custodia/internal/model"
	"custodia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the full service stack against an in-memory database with a
// seeded zone, one station selling every product and one user per role.
type testEnv struct {
	db *gorm.DB

	reportRepo     repository.ReportRepository
	deliveryRepo   repository.DeliveryRepository
	expenseRepo    repository.ExpenseRepository
	limitRepo      repository.LimitRepository
	closureRepo    repository.ClosureRepository
	settlementRepo repository.SettlementRepository
	stationRepo    repository.StationRepository
	auditRepo      repository.AuditRepository

	balances    BalanceService
	reports     ReportService
	deliveries  DeliveryService
	expenses    ExpenseService
	closures    ClosureService
	settlements SettlementService

	zone          model.Zone
	station       model.Station
	stationUser   model.User
	zoneUser      model.User
	directionUser model.User
	adminUser     model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testEnv{
		db:             db,
		reportRepo:     repository.NewReportRepository(db),
		deliveryRepo:   repository.NewDeliveryRepository(db),
		expenseRepo:    repository.NewExpenseRepository(db),
		limitRepo:      repository.NewLimitRepository(db),
		closureRepo:    repository.NewClosureRepository(db),
		settlementRepo: repository.NewSettlementRepository(db),
		stationRepo:    repository.NewStationRepository(db),
		auditRepo:      repository.NewAuditRepository(db),
	}

	txManager := repository.NewTransactionManager(db)
	log := zerolog.Nop()

	env.balances = NewBalanceService(env.reportRepo, env.deliveryRepo, env.expenseRepo, env.settlementRepo)
	env.reports = NewReportService(env.reportRepo, env.stationRepo, env.closureRepo, env.auditRepo, txManager, nil, log)
	env.deliveries = NewDeliveryService(env.deliveryRepo, env.stationRepo, repository.NewUserRepository(db), env.settlementRepo, env.balances, env.auditRepo, txManager, nil, log)
	env.expenses = NewExpenseService(env.expenseRepo, env.limitRepo, env.stationRepo, env.settlementRepo, env.balances, env.auditRepo, txManager, log)
	env.closures = NewClosureService(env.closureRepo, env.reportRepo, env.settlementRepo, env.auditRepo, txManager, log)
	env.settlements = NewSettlementService(env.settlementRepo, env.closureRepo, env.stationRepo, env.deliveryRepo, env.expenseRepo, env.reportRepo, env.balances, env.auditRepo, txManager, log)

	env.zone = model.Zone{Name: "Zona Norte"}
	require.NoError(t, db.Create(&env.zone).Error)

	env.station = model.Station{
		Name:         "Estacion Centro",
		ZoneID:       env.zone.ID,
		SellsPremium: true,
		SellsMagna:   true,
		SellsDiesel:  true,
		Active:       true,
	}
	require.NoError(t, db.Create(&env.station).Error)

	env.stationUser = model.User{Username: "station-op", Email: "station@example.com", Role: model.RoleStation}
	env.zoneUser = model.User{Username: "zone-admin", Email: "zone@example.com", Role: model.RoleZone, ZoneID: &env.zone.ID}
	env.directionUser = model.User{Username: "direction", Email: "direction@example.com", Role: model.RoleDirection}
	env.adminUser = model.User{Username: "root", Email: "root@example.com", Role: model.RoleAdmin}
	for _, u := range []*model.User{&env.stationUser, &env.zoneUser, &env.directionUser, &env.adminUser} {
		require.NoError(t, db.Create(u).Error)
	}

	return env
}

func (e *testEnv) stationActor() Actor {
	return Actor{ID: e.stationUser.ID, Role: model.RoleStation, StationIDs: []uuid.UUID{e.station.ID}}
}

func (e *testEnv) zoneActor() Actor {
	return Actor{ID: e.zoneUser.ID, Role: model.RoleZone, ZoneID: &e.zone.ID}
}

func (e *testEnv) directionActor() Actor {
	return Actor{ID: e.directionUser.ID, Role: model.RoleDirection}
}

func (e *testEnv) adminActor() Actor {
	return Actor{ID: e.adminUser.ID, Role: model.RoleAdmin}
}

// addStation creates a second active station in the seeded zone.
func (e *testEnv) addStation(t *testing.T, name string) model.Station {
	t.Helper()
	station := model.Station{
		Name:         name,
		ZoneID:       e.zone.ID,
		SellsPremium: true,
		SellsMagna:   true,
		SellsDiesel:  true,
		Active:       true,
	}
	require.NoError(t, e.db.Create(&station).Error)
	return station
}

// seedApprovedShrinkage inserts an already approved report whose single line
// item carries the given shrinkage amount.
func (e *testEnv) seedApprovedShrinkage(t *testing.T, stationID uuid.UUID, date time.Time, shrinkage decimal.Decimal) model.SalesReport {
	t.Helper()
	return e.seedReport(t, stationID, date, model.ReportApproved, shrinkage)
}

func (e *testEnv) seedReport(t *testing.T, stationID uuid.UUID, date time.Time, status model.ReportStatus, shrinkage decimal.Decimal) model.SalesReport {
	t.Helper()
	report := model.SalesReport{
		StationID:  stationID,
		ReportDate: normalizeDate(date),
		Status:     status,
		CreatedBy:  e.stationUser.ID,
		Items: []model.FuelLineItem{{
			Product:         model.ProductMagna,
			Price:           dec("20"),
			LitersSold:      dec("1000"),
			Amount:          dec("20000"),
			ShrinkageAmount: shrinkage,
		}},
	}
	require.NoError(t, e.reportRepo.Create(context.Background(), &report))
	return report
}

// seedConfirmedDelivery inserts an already counter-signed delivery.
func (e *testEnv) seedConfirmedDelivery(t *testing.T, kind model.DeliveryKind, stationID *uuid.UUID, date time.Time, amount decimal.Decimal) model.Delivery {
	t.Helper()
	now := time.Now()
	delivery := model.Delivery{
		Kind:        kind,
		StationID:   stationID,
		ZoneID:      e.zone.ID,
		Amount:      amount,
		DeliveredAt: normalizeDate(date),
		Status:      model.DeliveryConfirmed,
		InitiatedBy: e.stationUser.ID,
		ConfirmedBy: &e.zoneUser.ID,
		ConfirmedAt: &now,
	}
	require.NoError(t, e.deliveryRepo.Create(context.Background(), &delivery))
	return delivery
}

func (e *testEnv) seedStationLimit(t *testing.T, stationID uuid.UUID, ceiling decimal.Decimal, from time.Time) {
	t.Helper()
	limit := model.SpendingLimit{
		StationID:      &stationID,
		MonthlyCeiling: ceiling,
		EffectiveFrom:  normalizeDate(from),
		CreatedBy:      e.adminUser.ID,
	}
	require.NoError(t, e.limitRepo.Create(context.Background(), &limit))
}

func (e *testEnv) seedZoneLimit(t *testing.T, ceiling decimal.Decimal, from time.Time) {
	t.Helper()
	limit := model.SpendingLimit{
		ZoneID:         &e.zone.ID,
		MonthlyCeiling: ceiling,
		EffectiveFrom:  normalizeDate(from),
		CreatedBy:      e.adminUser.ID,
	}
	require.NoError(t, e.limitRepo.Create(context.Background(), &limit))
}

// closeOperational marks the zone's month closed without going through the
// completeness validation, for tests that only need the lock.
func (e *testEnv) closeOperational(t *testing.T, year, month int) {
	t.Helper()
	now := time.Now()
	closure := model.OperationalClosure{
		ZoneID:   e.zone.ID,
		Year:     year,
		Month:    month,
		Closed:   true,
		ClosedBy: &e.zoneUser.ID,
		ClosedAt: &now,
	}
	require.NoError(t, e.closureRepo.Save(context.Background(), &closure))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// requireAmount compares a decimal against its expected string value.
func requireAmount(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, actual.Equal(dec(expected)), "expected %s, got %s", expected, actual.String())
}
