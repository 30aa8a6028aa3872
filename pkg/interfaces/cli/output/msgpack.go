package output

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vsinha/foodplan/pkg/application/dto"
)

// Report is the msgpack wire form of a materials report. Quantities travel as
// decimal strings so no precision is lost.
type Report struct {
	PlanID          string           `msgpack:"plan_id,omitempty"`
	CreatedAtMs     int64            `msgpack:"created_at,omitempty"`
	Locations       []string         `msgpack:"locations,omitempty"`
	Products        []Product        `msgpack:"products,omitempty"`
	PerLocation     map[string]int64 `msgpack:"per_location,omitempty"`
	GrandTotal      int64            `msgpack:"grand_total"`
	Materials       []Material       `msgpack:"materials,omitempty"`
	MissingProducts []string         `msgpack:"missing_products,omitempty"`
}

type Product struct {
	Product     string           `msgpack:"product"`
	PerLocation map[string]int64 `msgpack:"per_location,omitempty"`
	Total       int64            `msgpack:"total"`
	HasRecipe   bool             `msgpack:"has_recipe"`
}

type Material struct {
	Category string `msgpack:"category"`
	Name     string `msgpack:"name"`
	Quantity string `msgpack:"quantity"`
	Unit     string `msgpack:"unit"`
}

// NewReport converts a materials report to its msgpack form
func NewReport(report *dto.MaterialsReport) Report {
	out := Report{
		PlanID:          report.PlanID,
		CreatedAtMs:     report.CreatedAt.UnixMilli(),
		Locations:       report.Locations,
		PerLocation:     report.PerLocation,
		GrandTotal:      report.GrandTotal,
		MissingProducts: report.MissingProducts,
	}
	for _, p := range report.Products {
		out.Products = append(out.Products, Product{
			Product:     p.Product,
			PerLocation: p.PerLocation,
			Total:       p.Total,
			HasRecipe:   p.HasRecipe,
		})
	}
	for _, m := range report.Materials {
		out.Materials = append(out.Materials, Material{
			Category: m.Category,
			Name:     m.Name,
			Quantity: m.Quantity.String(),
			Unit:     m.Unit,
		})
	}
	return out
}

// generateMsgpackOutput writes the report as a msgpack document
func generateMsgpackOutput(report *dto.MaterialsReport, config Config) error {
	filename, err := outputPath(config, "materials.msgpack")
	if err != nil {
		return err
	}

	wire := NewReport(report)
	data, err := msgpack.Marshal(&wire)
	if err != nil {
		return fmt.Errorf("failed to marshal msgpack: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write msgpack file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 msgpack results saved to: %s\n", filename)
	}
	return nil
}
