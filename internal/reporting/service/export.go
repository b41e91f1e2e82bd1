package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/smallbiznis/toko/internal/reporting/domain"
	"github.com/xuri/excelize/v2"
)

const (
	contentTypeCSV   = "text/csv"
	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func renderTotalSummary(summaries []domain.DailySummary, format string, includeProfit bool) (*domain.Export, error) {
	header := []string{"date", "orders", "total_sales"}
	if includeProfit {
		header = append(header, "total_profit")
	}

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		row := []string{
			summary.Day,
			strconv.Itoa(summary.Orders),
			summary.Sales.StringFixed(2),
		}
		if includeProfit {
			row = append(row, summary.Profit.StringFixed(2))
		}
		rows = append(rows, row)
	}

	return render("sales_summary", header, rows, format)
}

func renderCustomerWise(summaries []domain.CustomerSummary, format string) (*domain.Export, error) {
	header := []string{"customer", "phone", "orders", "total_spent"}

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, []string{
			summary.Name,
			summary.Phone,
			strconv.Itoa(summary.Orders),
			summary.TotalSpent.StringFixed(2),
		})
	}

	return render("customer_report", header, rows, format)
}

func render(name string, header []string, rows [][]string, format string) (*domain.Export, error) {
	switch format {
	case domain.FormatCSV:
		return renderCSV(name, header, rows)
	case domain.FormatExcel:
		return renderExcel(name, header, rows)
	default:
		return nil, domain.ErrInvalidFormat
	}
}

func renderCSV(name string, header []string, rows [][]string) (*domain.Export, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return &domain.Export{
		FileName:    name + ".csv",
		ContentType: contentTypeCSV,
		Data:        buf.Bytes(),
	}, nil
}

func renderExcel(name string, header []string, rows [][]string) (*domain.Export, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := setStringRow(file, sheet, 1, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := setStringRow(file, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return &domain.Export{
		FileName:    name + ".xlsx",
		ContentType: contentTypeExcel,
		Data:        buf.Bytes(),
	}, nil
}

func setStringRow(file *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, value := range values {
		cells[i] = value
	}
	if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
