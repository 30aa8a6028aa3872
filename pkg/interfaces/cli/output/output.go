package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vsinha/foodplan/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format      string
	OutputDir   string
	Verbose     bool
	ProcessTime time.Duration
	// Writer receives console output; defaults to stdout
	Writer io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Generate creates output in the specified format
func Generate(report *dto.MaterialsReport, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(report, config)
	case "json":
		return generateJSONOutput(report, config)
	case "csv":
		return generateCSVOutput(report, config)
	case "xlsx":
		return generateXLSXOutput(report, config)
	case "msgpack":
		return generateMsgpackOutput(report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(report *dto.MaterialsReport, config Config) error {
	w := config.writer()

	fmt.Fprintf(w, "📊 Production Plan Summary\n")
	fmt.Fprintf(w, "==========================\n\n")

	fmt.Fprintf(w, "Plan: %s\n", report.PlanID)
	fmt.Fprintf(w, "Products: %d\n", len(report.Products))
	fmt.Fprintf(w, "Locations: %d\n", len(report.Locations))
	fmt.Fprintf(w, "Grand Total: %d\n", report.GrandTotal)
	if config.ProcessTime > 0 {
		fmt.Fprintf(w, "Processing Time: %v\n", config.ProcessTime)
	}
	fmt.Fprintln(w)

	if len(report.Products) > 0 {
		fmt.Fprintf(w, "🏭 Production Targets:\n")
		fmt.Fprintf(w, "%-20s", "Product")
		for _, location := range report.Locations {
			fmt.Fprintf(w, " %-10s", location)
		}
		fmt.Fprintf(w, " %-10s\n", "Total")

		for _, product := range report.Products {
			fmt.Fprintf(w, "%-20s", product.Product)
			for _, location := range report.Locations {
				fmt.Fprintf(w, " %-10d", product.PerLocation[location])
			}
			fmt.Fprintf(w, " %-10d\n", product.Total)
		}

		fmt.Fprintf(w, "%-20s", "All products")
		for _, location := range report.Locations {
			fmt.Fprintf(w, " %-10d", report.PerLocation[location])
		}
		fmt.Fprintf(w, " %-10d\n\n", report.GrandTotal)
	}

	if len(report.Materials) > 0 {
		fmt.Fprintf(w, "📦 Material Requirements:\n")
		fmt.Fprintf(w, "%-12s %-25s %-14s %-6s\n", "Category", "Ingredient", "Quantity", "Unit")
		fmt.Fprintf(w, "%-12s %-25s %-14s %-6s\n",
			"------------", "-------------------------", "--------------", "------")

		for _, material := range report.Materials {
			fmt.Fprintf(w, "%-12s %-25s %-14s %-6s\n",
				material.Category,
				material.Name,
				material.Quantity.String(),
				material.Unit)
		}
		fmt.Fprintln(w)
	}

	if len(report.MissingProducts) > 0 {
		fmt.Fprintf(w, "⚠️  Products without recipe:\n")
		for _, product := range report.MissingProducts {
			fmt.Fprintf(w, "  %s\n", product)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(report *dto.MaterialsReport, config Config) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.writer(), string(jsonData))
		return nil
	}

	filename, err := outputPath(config, "materials.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes the materials and the product grid. Without an output
// directory only the materials are written to the console.
func generateCSVOutput(report *dto.MaterialsReport, config Config) error {
	if config.OutputDir == "" {
		return writeMaterialsCSV(report.Materials, config.writer())
	}

	materialsFile, err := outputPath(config, "materials.csv")
	if err != nil {
		return err
	}
	if err := writeCSVFile(materialsFile, func(w io.Writer) error {
		return writeMaterialsCSV(report.Materials, w)
	}); err != nil {
		return fmt.Errorf("failed to write materials CSV: %w", err)
	}

	productsFile := filepath.Join(config.OutputDir, "products.csv")
	if err := writeCSVFile(productsFile, func(w io.Writer) error {
		return writeProductsCSV(report, w)
	}); err != nil {
		return fmt.Errorf("failed to write products CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 CSV results saved to:\n")
		fmt.Fprintf(config.writer(), "  Materials: %s\n", materialsFile)
		fmt.Fprintf(config.writer(), "  Products: %s\n", productsFile)
	}
	return nil
}

func writeMaterialsCSV(materials []dto.MaterialLine, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"category", "ingredient", "quantity", "unit"}); err != nil {
		return err
	}
	for _, material := range materials {
		if err := writer.Write([]string{material.Category, material.Name, material.Quantity.String(), material.Unit}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeProductsCSV(report *dto.MaterialsReport, w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{"product"}, report.Locations...)
	header = append(header, "total")
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, product := range report.Products {
		record := []string{product.Product}
		for _, location := range report.Locations {
			record = append(record, strconv.FormatInt(product.PerLocation[location], 10))
		}
		record = append(record, strconv.FormatInt(product.Total, 10))
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeCSVFile(filename string, write func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// outputPath creates the output directory and returns the path of name inside it
func outputPath(config Config, name string) (string, error) {
	if config.OutputDir == "" {
		return "", fmt.Errorf("output directory required for %s format", config.Format)
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, name), nil
}
