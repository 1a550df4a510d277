package offer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"offerflow/internal"
)

func RenderXLSX(o *internal.Offer) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}

	header := [][2]any{
		{"Offer", o.Number},
		{"Date", o.Date.Format("2006-01-02")},
		{"Valid until", o.ValidUntil.Format("2006-01-02")},
		{"Customer", o.CustomerNumber},
		{"Reference", o.Reference},
		{"Payment terms", o.PaymentTerms},
	}
	for i, kv := range header {
		set(1, i+1, kv[0])
		set(2, i+1, kv[1])
	}

	tableStart := len(header) + 2
	columns := []string{"pos", "product_code", "product_name", "qty", "unit", "unit_price", "discount_pct", "net_price", "line_total"}
	for i, h := range columns {
		set(i+1, tableStart, h)
	}
	for i, line := range o.Lines {
		r := tableStart + 1 + i
		set(1, r, line.Position)
		set(2, r, line.ProductCode)
		set(3, r, line.ProductName)
		set(4, r, line.Quantity)
		set(5, r, line.Unit)
		set(6, r, line.UnitPrice)
		set(7, r, line.DiscountPct)
		set(8, r, line.NetPrice)
		set(9, r, line.LineTotal)
	}

	totalsRow := tableStart + len(o.Lines) + 2
	set(1, totalsRow, "Net total")
	set(2, totalsRow, o.NetTotal)
	set(1, totalsRow+1, "VAT")
	set(2, totalsRow+1, o.VATTotal)
	set(1, totalsRow+2, "Gross total")
	set(2, totalsRow+2, o.GrossTotal)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportPendingToXLSX(records []internal.PendingOffer, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"id", "offer_number", "customer_name", "customer_email", "status", "created_at",
		"total_amount", "warnings", "errors",
		"line_pos", "product_code", "product_name", "qty", "unit", "unit_price", "discount_pct", "net_price", "line_total",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	r := 2
	for _, record := range records {
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		writeRecord := func() {
			set(1, record.ID)
			set(2, record.OfferNumber)
			set(3, record.CustomerName)
			set(4, record.CustomerEmail)
			set(5, string(record.Status))
			set(6, record.CreatedAt.Format(time.RFC3339))
			set(7, record.TotalAmount)
			set(8, len(record.Warnings))
			set(9, len(record.Errors))
		}

		if len(record.Lines) == 0 {
			writeRecord()
			r++
			continue
		}
		for _, line := range record.Lines {
			writeRecord()
			set(10, line.Position)
			set(11, line.ProductCode)
			set(12, line.ProductName)
			set(13, line.Quantity)
			set(14, line.Unit)
			set(15, line.UnitPrice)
			set(16, line.DiscountPct)
			set(17, line.NetPrice)
			set(18, line.LineTotal)
			r++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func ExportFileName(record internal.PendingOffer) string {
	number := record.OfferNumber
	if number == "" {
		number = "draft"
	}
	return fmt.Sprintf("offer_%s_%s.xlsx", number, record.ID)
}
