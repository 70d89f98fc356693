package service

import (
	"testing"

	"custodia/internal/model"

	"github.com/stretchr/testify/require"
)

func TestComputeLineItemDerivesAccountingChain(t *testing.T) {
	item := computeLineItem(LineItemInput{
		Product:          model.ProductMagna,
		Price:            dec("22.5"),
		LitersSold:       dec("1000"),
		ShrinkageVolume:  dec("10"),
		OpeningInventory: dec("5000"),
		Purchases:        dec("2000"),
		CCT:              dec("2100"),
		DiscountVolume:   dec("50"),
		ReportedClosing:  dec("6020"),
	})

	requireAmount(t, "22500", item.Amount)
	requireAmount(t, "225", item.ShrinkageAmount)
	requireAmount(t, "100", item.DC)
	requireAmount(t, "50", item.DiscountDiff)
	requireAmount(t, "6000", item.ClosingInventory)
	requireAmount(t, "20", item.EfficiencyReal)
	requireAmount(t, "450", item.EfficiencyAmount)
	// 10 / (1000 - 10) * 100
	requireAmount(t, "1.0101", item.ShrinkagePct)
	// 20 / 1000 * 100
	requireAmount(t, "2", item.EfficiencyPct)
}

func TestComputeLineItemZeroDenominators(t *testing.T) {
	item := computeLineItem(LineItemInput{
		Product:          model.ProductDiesel,
		Price:            dec("24"),
		LitersSold:       dec("0"),
		ShrinkageVolume:  dec("0"),
		OpeningInventory: dec("100"),
		ReportedClosing:  dec("100"),
	})

	require.True(t, item.ShrinkagePct.IsZero())
	require.True(t, item.EfficiencyPct.IsZero())
}

func TestComputeLineItemShrinkageEqualsLiters(t *testing.T) {
	// Denominator LitersSold - ShrinkageVolume collapses to zero.
	item := computeLineItem(LineItemInput{
		Product:         model.ProductMagna,
		Price:           dec("20"),
		LitersSold:      dec("10"),
		ShrinkageVolume: dec("10"),
	})
	require.True(t, item.ShrinkagePct.IsZero())
}

func TestClampPctBounds(t *testing.T) {
	requireAmount(t, "9999.9999", clampPct(dec("123456789")))
	requireAmount(t, "-9999.9999", clampPct(dec("-123456789")))
	requireAmount(t, "42.5", clampPct(dec("42.5")))
}

func TestRederiveFromOpeningPreservesRawInputs(t *testing.T) {
	item := computeLineItem(LineItemInput{
		Product:          model.ProductPremium,
		Price:            dec("25"),
		LitersSold:       dec("500"),
		ShrinkageVolume:  dec("5"),
		OpeningInventory: dec("3000"),
		Purchases:        dec("1000"),
		CCT:              dec("1050"),
		DiscountVolume:   dec("30"),
		ReportedClosing:  dec("3510"),
	})
	requireAmount(t, "3500", item.ClosingInventory)
	requireAmount(t, "10", item.EfficiencyReal)

	rederiveFromOpening(&item, dec("3100"))

	requireAmount(t, "3100", item.OpeningInventory)
	requireAmount(t, "3600", item.ClosingInventory)
	requireAmount(t, "-90", item.EfficiencyReal)
	requireAmount(t, "-2250", item.EfficiencyAmount)
	// Raw capture inputs stay untouched.
	requireAmount(t, "25", item.Price)
	requireAmount(t, "500", item.LitersSold)
	requireAmount(t, "3510", item.ReportedClosing)
	// CCT 1050 - purchases 1000.
	requireAmount(t, "50", item.DC)
	requireAmount(t, "20", item.DiscountDiff)
}
