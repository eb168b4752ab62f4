/*
Package report renders spreadsheet exports with github.com/xuri/excelize/v2.

WORKBOOKS:
  Sales      one row per sale (date, customer, quantity, total, paid,
             outstanding) plus an Items sheet with every line
  Inventory  one row per roast batch with sold, adjusted and available
             grams

Money cells hold numbers, not text, so the sheets can be summed.
*/
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/roastsync/roastery/roastery"
)

const (
	SalesSheet     = "Sales"
	ItemsSheet     = "Items"
	InventorySheet = "Inventory"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	salesHeader = []any{"Sale ID", "Date", "Customer", "Quantity (g)", "Total", "Paid", "Amount paid", "Outstanding", "Paid at", "Notes"}
	itemsHeader = []any{"Sale ID", "Roast batch", "Bag size (g)", "Bags", "Bag price", "Subtotal", "Notes"}
	stockHeader = []any{"Roast batch", "Roast date", "Farm", "Variety", "Process", "Roast level", "Roasted (g)", "Sold (g)", "Adjusted (g)", "Available (g)", "Shrinkage %"}
)

// SalesWorkbook builds the sales export. customers maps customer IDs to
// names; unknown IDs are written as "#<id>".
func SalesWorkbook(sales []roastery.Sale, customers map[int64]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		f.Close()
		return nil, err
	}

	rows := make([][]any, 0, len(sales))
	var items [][]any
	for _, s := range sales {
		paidAt := ""
		if s.PaidAt != nil {
			paidAt = s.PaidAt.Format("2006-01-02")
		}
		rows = append(rows, []any{
			s.ID,
			s.SaleDate.Format("2006-01-02"),
			customerName(s.CustomerID, customers),
			s.TotalQuantity.Float64(),
			s.TotalPrice.InexactFloat64(),
			s.IsPaid,
			s.AmountPaid.InexactFloat64(),
			s.Outstanding().InexactFloat64(),
			paidAt,
			s.Notes,
		})
		for _, it := range s.Items {
			items = append(items, []any{
				s.ID, it.RoastBatchID, it.BagSizeG, it.Bags,
				it.BagPrice.InexactFloat64(), it.Subtotal().InexactFloat64(), it.Notes,
			})
		}
	}

	if err := writeTable(f, SalesSheet, salesHeader, rows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, ItemsSheet, itemsHeader, items); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// InventoryWorkbook builds the roasted stock export. Available is written
// unfloored so overdrawn batches show up.
func InventoryWorkbook(stock []roastery.RoastStock) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InventorySheet); err != nil {
		f.Close()
		return nil, err
	}

	rows := make([][]any, 0, len(stock))
	for _, st := range stock {
		rows = append(rows, []any{
			st.Roast.ID,
			st.Roast.RoastDate.Format("2006-01-02"),
			st.FarmName,
			st.VarietyName,
			st.LotProcess,
			st.Roast.RoastLevel,
			st.Roast.RoastedOutput.Float64(),
			st.Sold.Float64(),
			st.Adjusted.Float64(),
			st.Available().Float64(),
			st.Roast.ShrinkagePct,
		})
	}

	if err := writeTable(f, InventorySheet, stockHeader, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write streams the workbook to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func customerName(id *int64, names map[int64]string) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}
