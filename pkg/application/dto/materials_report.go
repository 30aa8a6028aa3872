package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialLine is one aggregated ingredient requirement of a processed plan
type MaterialLine struct {
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// ProductLine is the planned quantity of one product, per location and overall
type ProductLine struct {
	Product     string           `json:"product"`
	PerLocation map[string]int64 `json:"per_location"`
	Total       int64            `json:"total"`
	HasRecipe   bool             `json:"has_recipe"`
}

// MaterialsReport is the complete output of processing a plan
type MaterialsReport struct {
	PlanID          string           `json:"plan_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Locations       []string         `json:"locations"`
	Products        []ProductLine    `json:"products"`
	PerLocation     map[string]int64 `json:"per_location"`
	GrandTotal      int64            `json:"grand_total"`
	Materials       []MaterialLine   `json:"materials"`
	MissingProducts []string         `json:"missing_products"`
}

// ExplosionLine is one leaf requirement of a BOM explosion, with its display breakdown
type ExplosionLine struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Display  string          `json:"display"`
}
