package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ProductionTargetRow is one product line of the planning grid
type ProductionTargetRow struct {
	ProductID  string
	Quantities map[string]int64 // location -> target quantity
}

// NewProductionTargetRow creates a validated ProductionTargetRow
func NewProductionTargetRow(productID string, quantities map[string]int64) (*ProductionTargetRow, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	copied := make(map[string]int64, len(quantities))
	for location, qty := range quantities {
		if location == "" {
			return nil, fmt.Errorf("location cannot be empty for product %s", productID)
		}
		if qty < 0 {
			return nil, &ValidationError{
				Field:  "target quantity",
				Value:  fmt.Sprintf("%s@%s=%d", productID, location, qty),
				Reason: "cannot be negative",
			}
		}
		copied[location] = qty
	}

	return &ProductionTargetRow{ProductID: productID, Quantities: copied}, nil
}

// SortedLocations returns the row's locations in lexicographic order
func (r ProductionTargetRow) SortedLocations() []string {
	locations := make([]string, 0, len(r.Quantities))
	for location := range r.Quantities {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// PlanSnapshot is the immutable, processed form of a planning grid.
// It is consumed once by recipe expansion and then archived.
type PlanSnapshot struct {
	id        string
	createdAt time.Time
	rows      []ProductionTargetRow
}

// NewPlanSnapshot validates the rows and freezes a deep copy of them
func NewPlanSnapshot(id string, createdAt time.Time, rows []ProductionTargetRow) (*PlanSnapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("snapshot id cannot be empty")
	}
	frozen := make([]ProductionTargetRow, 0, len(rows))
	for _, row := range rows {
		validated, err := NewProductionTargetRow(row.ProductID, row.Quantities)
		if err != nil {
			return nil, err
		}
		frozen = append(frozen, *validated)
	}

	return &PlanSnapshot{id: id, createdAt: createdAt, rows: frozen}, nil
}

// ID returns the snapshot identifier
func (s *PlanSnapshot) ID() string { return s.id }

// CreatedAt returns when the grid was materialized
func (s *PlanSnapshot) CreatedAt() time.Time { return s.createdAt }

// Rows returns a copy of the frozen rows
func (s *PlanSnapshot) Rows() []ProductionTargetRow {
	rows := make([]ProductionTargetRow, len(s.rows))
	for i, row := range s.rows {
		quantities := make(map[string]int64, len(row.Quantities))
		for location, qty := range row.Quantities {
			quantities[location] = qty
		}
		rows[i] = ProductionTargetRow{ProductID: row.ProductID, Quantities: quantities}
	}
	return rows
}

// AggregatedMaterial is the total requirement of one ingredient within a category
type AggregatedMaterial struct {
	Name     string
	Category RecipeCategory
	Quantity decimal.Decimal
	Unit     string
}
