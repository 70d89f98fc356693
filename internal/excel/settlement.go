package excel

import (
	"fmt"

	"custodia/internal/model"

	"github.com/xuri/excelize/v2"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a settlement workbook for one zone and month: a summary
// sheet from the zone-level row plus a table with one line per station.
func (g *Generator) Generate(zoneName string, year, month int, rows []model.MonthlySettlement) ([]byte, error) {
	var zoneRow *model.MonthlySettlement
	stationRows := make([]model.MonthlySettlement, 0, len(rows))
	for i := range rows {
		if rows[i].IsZoneRow() {
			zoneRow = &rows[i]
		} else {
			stationRows = append(stationRows, rows[i])
		}
	}
	if zoneRow == nil {
		return nil, fmt.Errorf("no settlement found for %d-%02d", year, month)
	}

	file := excelize.NewFile()

	sheet := "Settlement"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Zone")
	set("B1", zoneName)
	set("A2", "Period")
	set("B2", fmt.Sprintf("%04d-%02d", year, month))
	set("A3", "Status")
	set("B3", string(zoneRow.Status))
	set("A4", "Opening balance")
	set("B4", zoneRow.OpeningBalance.StringFixed(4))
	set("A5", "Deliveries total")
	set("B5", zoneRow.DeliveriesTotal.StringFixed(4))
	set("A6", "Expenses total")
	set("B6", zoneRow.ExpensesTotal.StringFixed(4))
	set("A7", "Closing balance")
	set("B7", zoneRow.ClosingBalance.StringFixed(4))
	set("A8", "Difference")
	set("B8", zoneRow.Difference.StringFixed(4))
	if zoneRow.Observations != "" {
		set("A9", "Observations")
		set("B9", zoneRow.Observations)
	}

	tableRow := 11
	headers := []string{"Station", "Shrinkage", "Deliveries", "Expenses", "Balance"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, row := range stationRows {
		name := ""
		if row.Station != nil {
			name = row.Station.Name
		} else if row.StationID != nil {
			name = row.StationID.String()
		}
		values := []interface{}{
			name,
			row.ShrinkageTotal.StringFixed(4),
			row.DeliveriesTotal.StringFixed(4),
			row.ExpensesTotal.StringFixed(4),
			row.ClosingBalance.StringFixed(4),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, tableRow+1+i)
			set(cell, value)
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 28)
	_ = file.SetColWidth(sheet, "B", "E", 18)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
