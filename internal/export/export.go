// Package export renders derived periods as flat tables for download and
// for the spreadsheet mirror.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"budget/internal/core"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	xlsxSheet = "Budget"
)

// Headers is the fixed column order of every export.
var Headers = []string{
	"Period",
	"Month",
	"Year",
	"Salary",
	"Fixed Expenses",
	"Planned Long-Term Savings",
	"Actual Long-Term Savings",
	"Planned Short-Term Savings",
	"Actual Short-Term Savings",
	"Goal Contribution",
	"Additional Income",
	"Additional Expense",
	"Carryover From Previous",
	"Total Available",
	"Long-Term Savings Diff",
	"Short-Term Savings Diff",
	"Surplus/Deficit",
	"Carryover To Next",
}

// Report is a two-period table ready to be written in any format.
type Report struct {
	Year         int
	Period1Label string
	Period2Label string
	Period1      []core.DerivedMonth
	Period2      []core.DerivedMonth
}

// PeriodLabel formats the first column value, e.g. "Period 1 (First 6 Months)".
func PeriodLabel(p core.Period, name string) string {
	return fmt.Sprintf("Period %d (%s)", int(p), name)
}

// NewReport labels both periods from settings.
func NewReport(s core.Settings, d1, d2 []core.DerivedMonth) Report {
	return Report{
		Year:         s.StartYear,
		Period1Label: PeriodLabel(core.Period1, s.Period1Name),
		Period2Label: PeriodLabel(core.Period2, s.Period2Name),
		Period1:      d1,
		Period2:      d2,
	}
}

// FileName returns the download name for the given extension ("csv", "xlsx").
func (r Report) FileName(ext string) string {
	return fmt.Sprintf("expense-tracker-%d.%s", r.Year, ext)
}

// Rows returns the data rows without the header.
func (r Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Period1)+len(r.Period2))
	for _, m := range r.Period1 {
		rows = append(rows, row(r.Period1Label, m))
	}
	for _, m := range r.Period2 {
		rows = append(rows, row(r.Period2Label, m))
	}
	return rows
}

// Table returns the header followed by the data rows.
func (r Report) Table() [][]string {
	return append([][]string{Headers}, r.Rows()...)
}

func (r Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.Table()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook. Amount columns are stored as numbers.
func (r Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", h, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(xlsxSheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, rec := range r.Rows() {
		values := make([]any, len(rec))
		for j, v := range rec {
			// Period and Month stay text; everything else is numeric.
			if j < 2 {
				values[j] = v
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", i+1, Headers[j], err)
			}
			values[j] = n
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 28)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 12)
	_ = f.SetColWidth(xlsxSheet, "D", "R", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func row(label string, m core.DerivedMonth) []string {
	return []string{
		label,
		m.MonthName,
		strconv.Itoa(m.Year),
		m.Salary.String(),
		m.FixedExpenses.String(),
		m.PlannedLongTermSavings.String(),
		m.ActualLongTermSavings.String(),
		m.PlannedShortTermSavings.String(),
		m.ActualShortTermSavings.String(),
		m.GoalContribution.String(),
		m.AdditionalIncome.String(),
		m.AdditionalExpense.String(),
		m.CarryoverFromPrevious.String(),
		m.TotalAvailable.String(),
		m.LongTermSavingsDiff.String(),
		m.ShortTermSavingsDiff.String(),
		m.Surplus.String(),
		m.CarryoverToNext.String(),
	}
}
