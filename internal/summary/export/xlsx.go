package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

const amountFormat = "#,##0.00"

// WriteSummaryXLSX writes one worksheet per section.
func WriteSummaryXLSX(w io.Writer, s summary.AnnualSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F1F5F9"}},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	fmtAmount := amountFormat
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtAmount})
	if err != nil {
		return fmt.Errorf("export: amount style: %w", err)
	}

	for i, section := range Sections(s) {
		sheet := section.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("export: new sheet %q: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, section, header, amount); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, section Section, headerStyle, amountStyle int) error {
	headerRow := make([]any, len(section.Header))
	for i, h := range section.Header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("export: %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(section.Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range section.Rows {
		cells := append([]any(nil), row...)
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, r+1, err)
		}
		for c, cell := range row {
			if _, ok := cell.(float64); !ok {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, name, name, amountStyle); err != nil {
				return err
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(section.Header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 28)
}
