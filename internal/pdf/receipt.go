package pdf

import (
	"bytes"
	"fmt"
	"time"

	"custodia/internal/model"

	"github.com/jung-kurt/gofpdf"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders a printable receipt for a confirmed delivery: parties,
// amount, concept and both signature timestamps.
func (g *Generator) Generate(delivery model.Delivery) ([]byte, error) {
	if delivery.Status != model.DeliveryConfirmed {
		return nil, fmt.Errorf("delivery %s is not confirmed", delivery.ID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Custody Delivery Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Receipt %s", delivery.ID), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	g.row(pdf, "Kind", kindLabel(delivery.Kind))
	if delivery.Station != nil {
		g.row(pdf, "Station", delivery.Station.Name)
	}
	if delivery.Zone != nil {
		g.row(pdf, "Zone", delivery.Zone.Name)
	}
	if delivery.Addressee != nil {
		g.row(pdf, "Addressee", delivery.Addressee.Username)
	}
	g.row(pdf, "Delivery date", delivery.DeliveredAt.Format("2006-01-02"))
	g.row(pdf, "Concept", delivery.Concept)

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Amount: $ %s", delivery.Amount.StringFixed(4)), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)

	initiator := delivery.InitiatedBy.String()
	if delivery.Initiator != nil {
		initiator = delivery.Initiator.Username
	}
	g.row(pdf, "Initiated by", fmt.Sprintf("%s on %s", initiator, delivery.CreatedAt.Format(time.RFC3339)))

	confirmer := ""
	if delivery.ConfirmedBy != nil {
		confirmer = delivery.ConfirmedBy.String()
	}
	if delivery.Confirmer != nil {
		confirmer = delivery.Confirmer.Username
	}
	confirmedAt := ""
	if delivery.ConfirmedAt != nil {
		confirmedAt = delivery.ConfirmedAt.Format(time.RFC3339)
	}
	g.row(pdf, "Confirmed by", fmt.Sprintf("%s on %s", confirmer, confirmedAt))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 7, value, "", "L", false)
}

func kindLabel(kind model.DeliveryKind) string {
	switch kind {
	case model.DeliveryStationToZone:
		return "Station to zone"
	case model.DeliveryZoneToDirection:
		return "Zone to direction"
	}
	return string(kind)
}
