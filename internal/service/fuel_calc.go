package service

import (
	"custodia/internal/model"

	"github.com/shopspring/decimal"
)

// LineItemInput carries the raw capture fields for one product of a daily
// report. OpeningInventory is honored only on the 1st of the month; any
// other day it is overwritten with the prior day's reported closing.
type LineItemInput struct {
	Product         model.FuelProduct `json:"product" binding:"required"`
	Price           decimal.Decimal   `json:"price"`
	LitersSold      decimal.Decimal   `json:"liters_sold"`
	ShrinkageVolume decimal.Decimal   `json:"shrinkage_volume"`

	OpeningInventory decimal.Decimal `json:"opening_inventory"`
	Purchases        decimal.Decimal `json:"purchases"`
	CCT              decimal.Decimal `json:"cct"`
	DiscountVolume   decimal.Decimal `json:"discount_volume"`
	ReportedClosing  decimal.Decimal `json:"reported_closing"`
}

var (
	hundred = decimal.NewFromInt(100)
	// Percentage fields persist into a bounded fixed-point column; values
	// beyond the cap are clamped, not rejected.
	pctCap = decimal.RequireFromString("9999.9999")
)

// clampPct bounds a percentage to [-9999.9999, 9999.9999].
func clampPct(pct decimal.Decimal) decimal.Decimal {
	if pct.GreaterThan(pctCap) {
		return pctCap
	}
	if pct.LessThan(pctCap.Neg()) {
		return pctCap.Neg()
	}
	return pct
}

// computeLineItem derives the accounting fields of one line item from its
// raw inputs:
//
//	Amount    = Price * LitersSold
//	DC        = CCT - Purchases
//	DiscountDiff (DifVDsc) = DC - DiscountVolume
//	ClosingInventory (IF)  = OpeningInventory + Purchases - LitersSold
//	EfficiencyReal         = ReportedClosing - ClosingInventory
//	EfficiencyAmount       = EfficiencyReal * Price
//	ShrinkagePct           = ShrinkageVolume / (LitersSold - ShrinkageVolume) * 100
//	EfficiencyPct          = EfficiencyReal / LitersSold * 100
//
// Percentages fall back to zero when their denominator is zero.
func computeLineItem(in LineItemInput) model.FuelLineItem {
	item := model.FuelLineItem{
		Product:          in.Product,
		Price:            in.Price,
		LitersSold:       in.LitersSold,
		ShrinkageVolume:  in.ShrinkageVolume,
		OpeningInventory: in.OpeningInventory,
		Purchases:        in.Purchases,
		CCT:              in.CCT,
		DiscountVolume:   in.DiscountVolume,
		ReportedClosing:  in.ReportedClosing,
	}

	item.Amount = in.Price.Mul(in.LitersSold)
	item.ShrinkageAmount = in.ShrinkageVolume.Mul(in.Price)
	item.DC = in.CCT.Sub(in.Purchases)
	item.DiscountDiff = item.DC.Sub(in.DiscountVolume)
	item.ClosingInventory = in.OpeningInventory.Add(in.Purchases).Sub(in.LitersSold)
	item.EfficiencyReal = in.ReportedClosing.Sub(item.ClosingInventory)
	item.EfficiencyAmount = item.EfficiencyReal.Mul(in.Price)

	shrinkageBase := in.LitersSold.Sub(in.ShrinkageVolume)
	if !shrinkageBase.IsZero() {
		item.ShrinkagePct = clampPct(in.ShrinkageVolume.Div(shrinkageBase).Mul(hundred).Round(4))
	}
	if !in.LitersSold.IsZero() {
		item.EfficiencyPct = clampPct(item.EfficiencyReal.Div(in.LitersSold).Mul(hundred).Round(4))
	}

	return item
}

// rederiveFromOpening recomputes the derived chain of an existing item after
// its opening inventory was replaced by a carry-forward propagation. Raw
// capture inputs are preserved.
func rederiveFromOpening(item *model.FuelLineItem, opening decimal.Decimal) {
	recomputed := computeLineItem(LineItemInput{
		Product:          item.Product,
		Price:            item.Price,
		LitersSold:       item.LitersSold,
		ShrinkageVolume:  item.ShrinkageVolume,
		OpeningInventory: opening,
		Purchases:        item.Purchases,
		CCT:              item.CCT,
		DiscountVolume:   item.DiscountVolume,
		ReportedClosing:  item.ReportedClosing,
	})

	item.OpeningInventory = recomputed.OpeningInventory
	item.Amount = recomputed.Amount
	item.ShrinkageAmount = recomputed.ShrinkageAmount
	item.DC = recomputed.DC
	item.DiscountDiff = recomputed.DiscountDiff
	item.ClosingInventory = recomputed.ClosingInventory
	item.EfficiencyReal = recomputed.EfficiencyReal
	item.EfficiencyAmount = recomputed.EfficiencyAmount
	item.ShrinkagePct = recomputed.ShrinkagePct
	item.EfficiencyPct = recomputed.EfficiencyPct
}
