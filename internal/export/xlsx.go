package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
)

const maxSheetNameLen = 31

// WriteXLSX writes a workbook with one sheet named after the SIM. Amounts
// are stored as numbers so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, sim core.SimCard, recharges []core.Recharge) error {
	if len(recharges) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(sim)
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range recharges {
		row := []interface{}{
			r.Date,
			r.Time,
			r.OperationID,
			r.Amount,
			yesNo(r.ForUser1),
			yesNo(r.ForUser2),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "D", 16); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SheetName derives a valid worksheet name from the SIM name, falling back
// to its number.
func SheetName(sim core.SimCard) string {
	name := strings.TrimSpace(sim.Name)
	if name == "" {
		name = strings.TrimSpace(sim.Number)
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if runes := []rune(name); len(runes) > maxSheetNameLen {
		name = string(runes[:maxSheetNameLen])
	}
	if name == "" {
		return "Recharges"
	}
	return name
}
