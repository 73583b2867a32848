// Package export renders one month's listing and reports as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"txdash/internal/core"
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetTransactions = "Transactions"
	SheetStatistics   = "Statistics"
	SheetBarChart     = "BarChart"
	SheetPieChart     = "PieChart"
)

// Report is everything exported for one month.
type Report struct {
	Month        time.Month
	Search       string
	Transactions []core.Transaction
	Data         core.AllData
}

// Filename suggests an attachment name, e.g. "transactions-march.xlsx".
func (r Report) Filename() string {
	return fmt.Sprintf("transactions-%s.xlsx", strings.ToLower(r.Month.String()))
}

// Write encodes the report as an xlsx workbook to w.
func Write(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetStatistics, SheetBarChart, SheetPieChart} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SheetTransactions, []any{"Product ID", "Title", "Description", "Price", "Category", "Date of sale", "Sold"}, transactionRows(r.Transactions)},
		{SheetStatistics, []any{"Month", "Total sale amount", "Sold items", "Not sold items"}, [][]any{{
			r.Month.String(),
			r.Data.Statistics.TotalSaleAmount,
			r.Data.Statistics.TotalSoldItems,
			r.Data.Statistics.TotalNotSoldItems,
		}}},
		{SheetBarChart, []any{"Price range", "Items"}, barRows(r.Data.BarChart)},
		{SheetPieChart, []any{"Category", "Items"}, pieRows(r.Data.PieChart)},
	}

	for _, s := range sheets {
		if err := writeTable(f, s.name, s.header, s.rows, header); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func transactionRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []any{
			tx.ProductID,
			tx.Title,
			tx.Description,
			tx.Price,
			tx.Category,
			tx.DateOfSale.UTC().Format(time.RFC3339),
			tx.Sold,
		})
	}
	return rows
}

func barRows(entries []core.BarChartEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.Range, e.Count})
	}
	return rows
}

func pieRows(counts []core.CategoryCount) [][]any {
	rows := make([][]any, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []any{c.Category, c.Count})
	}
	return rows
}
