package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/foodplan/pkg/application/dto"
)

const (
	materialsSheet = "Materials"
	productsSheet  = "Products"
)

// generateXLSXOutput writes a workbook with a materials sheet and a product grid sheet
func generateXLSXOutput(report *dto.MaterialsReport, config Config) error {
	filename, err := outputPath(config, "materials.xlsx")
	if err != nil {
		return err
	}

	f := BuildWorkbook(report)
	defer f.Close()

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to write XLSX file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 XLSX results saved to: %s\n", filename)
	}
	return nil
}

// BuildWorkbook lays out a materials report as a spreadsheet
func BuildWorkbook(report *dto.MaterialsReport) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", materialsSheet)
	f.NewSheet(productsSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})

	materialHeaders := []string{"Category", "Ingredient", "Quantity", "Unit"}
	writeHeader(f, materialsSheet, materialHeaders, headerStyle)
	for i, material := range report.Materials {
		row := i + 2
		f.SetCellValue(materialsSheet, fmt.Sprintf("A%d", row), material.Category)
		f.SetCellValue(materialsSheet, fmt.Sprintf("B%d", row), material.Name)
		f.SetCellValue(materialsSheet, fmt.Sprintf("C%d", row), material.Quantity.InexactFloat64())
		f.SetCellValue(materialsSheet, fmt.Sprintf("D%d", row), material.Unit)
	}
	setColWidths(f, materialsSheet, []float64{14, 28, 14, 8})

	productHeaders := append([]string{"Product"}, report.Locations...)
	productHeaders = append(productHeaders, "Total")
	writeHeader(f, productsSheet, productHeaders, headerStyle)
	for i, product := range report.Products {
		row := i + 2
		values := []interface{}{product.Product}
		for _, location := range report.Locations {
			values = append(values, product.PerLocation[location])
		}
		values = append(values, product.Total)
		f.SetSheetRow(productsSheet, fmt.Sprintf("A%d", row), &values)
	}

	totalRow := len(report.Products) + 2
	totals := []interface{}{"Total"}
	for _, location := range report.Locations {
		totals = append(totals, report.PerLocation[location])
	}
	totals = append(totals, report.GrandTotal)
	f.SetSheetRow(productsSheet, fmt.Sprintf("A%d", totalRow), &totals)
	lastCol, _ := excelize.ColumnNumberToName(len(productHeaders))
	f.SetCellStyle(productsSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), totalStyle)

	widths := make([]float64, len(productHeaders))
	for i := range widths {
		widths[i] = 12
	}
	widths[0] = 24
	setColWidths(f, productsSheet, widths)

	return f
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}
