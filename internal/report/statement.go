// Package report exports analysis reports as an XLSX credit statement.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
)

// Sheet names.
const (
	CreditsSheet     = "Credits"
	AssumptionsSheet = "Assumptions"
)

// CreditColumns is the header row of the Credits sheet.
var CreditColumns = []string{
	"Farmer",
	"Month",
	"Source",
	"Generated (UTC)",
	"Area (ha)",
	"Baseline (t C/ha)",
	"Current Stock (t C/ha)",
	"Incremental (t C/ha)",
	"Gross CO2e (t)",
	"Buffer (t)",
	"Uncertainty (t)",
	"Net Credits (t CO2e)",
}

// WriteStatement writes a workbook with one Credits row per report, a totals
// row, and the coefficients on an Assumptions sheet. The assumptions are
// taken from the first report, or the defaults when there is none.
func WriteStatement(w io.Writer, reports ...*analysis.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", CreditsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(AssumptionsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeCredits(f, bold, reports); err != nil {
		return err
	}

	a := assumptionsOf(reports)
	if err := writeAssumptions(f, bold, a); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeCredits(f *excelize.File, headerStyle int, reports []*analysis.Report) error {
	header := make([]interface{}, len(CreditColumns))
	for i, c := range CreditColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(CreditsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(CreditColumns), 1)
	if err := f.SetCellStyle(CreditsSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	var area, gross, buffer, discount, credits float64
	row := 2
	for _, r := range reports {
		if r == nil {
			continue
		}
		res := r.Result
		values := []interface{}{
			r.FarmerID,
			res.Month,
			string(r.Source),
			r.GeneratedAt.UTC().Format(time.RFC3339),
			res.AreaHa,
			r.BaselineTCPerHa,
			res.CarbonCurrentTCPerHa,
			res.IncrementalTCPerHa,
			res.IncrementalCO2eT,
			res.BufferAppliedT,
			res.UncertaintyDiscountT,
			res.CreditsT,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(CreditsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.FarmerID, err)
		}

		area += res.AreaHa
		gross += res.IncrementalCO2eT
		buffer += res.BufferAppliedT
		discount += res.UncertaintyDiscountT
		credits += res.CreditsT
		row++
	}

	totals := []interface{}{"Total", "", "", "", area, "", "", "", gross, buffer, discount, credits}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(CreditsSheet, cell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	lastTotal, _ := excelize.CoordinatesToCellName(len(CreditColumns), row)
	if err := f.SetCellStyle(CreditsSheet, cell, lastTotal, headerStyle); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if err := f.SetPanes(CreditsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(CreditColumns))
	return f.SetColWidth(CreditsSheet, "A", lastCol, 18)
}

func assumptionsOf(reports []*analysis.Report) carbon.Assumptions {
	for _, r := range reports {
		if r != nil {
			return r.Result.Assumptions
		}
	}
	c := carbon.DefaultCoefficients()
	return carbon.Assumptions{
		K:             c.K,
		CF:            c.CF,
		RootRatio:     c.RootRatio,
		BufferRate:    c.BufferRate,
		Uncertainty:   c.Uncertainty,
		NDVIMidpoints: carbon.NDVIMidpoints(),
	}
}

func writeAssumptions(f *excelize.File, headerStyle int, a carbon.Assumptions) error {
	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"k (kg/ha per NDVI unit)", a.K},
		{"Carbon fraction", a.CF},
		{"Root ratio", a.RootRatio},
		{"Buffer rate", a.BufferRate},
		{"Uncertainty", a.Uncertainty},
		{"NDVI midpoint bare", a.NDVIMidpoints.Bare},
		{"NDVI midpoint sparse", a.NDVIMidpoints.Sparse},
		{"NDVI midpoint moderate", a.NDVIMidpoints.Moderate},
		{"NDVI midpoint dense", a.NDVIMidpoints.Dense},
	}
	for i, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(AssumptionsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write assumptions: %w", err)
		}
	}
	if err := f.SetCellStyle(AssumptionsSheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to style assumptions header: %w", err)
	}
	return f.SetColWidth(AssumptionsSheet, "A", "A", 28)
}
