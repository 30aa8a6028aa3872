package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// ProductTotal is the planned quantity of one product per location
type ProductTotal struct {
	Product     string
	PerLocation map[string]int64
	Total       int64
}

// ExpansionResult is the outcome of expanding a target grid through the recipe book
type ExpansionResult struct {
	Products    []ProductTotal
	PerLocation map[string]int64
	GrandTotal  int64
	Materials   map[entities.RecipeCategory]map[string]entities.AggregatedMaterial
	Missing     []entities.MissingRecipeError
}

// MaterialLines flattens the materials by category order, then ingredient name
func (r *ExpansionResult) MaterialLines() []entities.AggregatedMaterial {
	var lines []entities.AggregatedMaterial
	for _, category := range entities.RecipeCategories {
		bucket := r.Materials[category]
		names := make([]string, 0, len(bucket))
		for name := range bucket {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, bucket[name])
		}
	}
	return lines
}

// Locations returns every location of the result in lexicographic order
func (r *ExpansionResult) Locations() []string {
	locations := make([]string, 0, len(r.PerLocation))
	for location := range r.PerLocation {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// RecipeExpander turns production targets into aggregated ingredient requirements.
// It holds no state between calls.
type RecipeExpander struct{}

// NewRecipeExpander creates a recipe expander
func NewRecipeExpander() *RecipeExpander {
	return &RecipeExpander{}
}

// ExpandSnapshot expands the rows of a processed plan snapshot
func (e *RecipeExpander) ExpandSnapshot(snapshot *entities.PlanSnapshot, book entities.RecipeBook) (*ExpansionResult, error) {
	return e.Expand(snapshot.Rows(), book)
}

// Expand accumulates quantity * perUnitAmount for every recipe component of every
// (product, location) cell. Products without a recipe still count toward the totals
// and are reported in Missing.
func (e *RecipeExpander) Expand(rows []entities.ProductionTargetRow, book entities.RecipeBook) (*ExpansionResult, error) {
	result := &ExpansionResult{
		PerLocation: make(map[string]int64),
		Materials:   make(map[entities.RecipeCategory]map[string]entities.AggregatedMaterial),
	}
	for _, category := range entities.RecipeCategories {
		result.Materials[category] = make(map[string]entities.AggregatedMaterial)
	}

	// Process products in lexicographic order; rows of the same product are merged
	ordered := make([]entities.ProductionTargetRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ProductID < ordered[j].ProductID
	})

	productIndex := make(map[string]int)
	missingSeen := make(map[string]bool)

	for _, row := range ordered {
		idx, ok := productIndex[row.ProductID]
		if !ok {
			idx = len(result.Products)
			productIndex[row.ProductID] = idx
			result.Products = append(result.Products, ProductTotal{
				Product:     row.ProductID,
				PerLocation: make(map[string]int64),
			})
		}
		total := &result.Products[idx]

		recipe, hasRecipe := book[row.ProductID]
		if !hasRecipe && !missingSeen[row.ProductID] {
			missingSeen[row.ProductID] = true
			result.Missing = append(result.Missing, entities.MissingRecipeError{Product: row.ProductID})
		}

		for _, location := range row.SortedLocations() {
			qty := row.Quantities[location]
			if qty < 0 {
				return nil, &entities.ValidationError{
					Field:  "target quantity",
					Value:  fmt.Sprintf("%s@%s=%d", row.ProductID, location, qty),
					Reason: "cannot be negative",
				}
			}

			total.PerLocation[location] += qty
			total.Total += qty
			result.PerLocation[location] += qty
			result.GrandTotal += qty

			if !hasRecipe || qty == 0 {
				continue
			}
			for _, category := range entities.RecipeCategories {
				for _, component := range recipe.Components(category) {
					if err := accumulate(result.Materials[category], category, component, qty); err != nil {
						return nil, fmt.Errorf("product %s: %w", row.ProductID, err)
					}
				}
			}
		}
	}

	return result, nil
}

func accumulate(bucket map[string]entities.AggregatedMaterial, category entities.RecipeCategory, component entities.RecipeComponent, qty int64) error {
	unit, perUnit := NormalizeRecipeUnit(component.Unit, component.PerUnitAmount)
	contribution := perUnit.Mul(decimal.NewFromInt(qty))

	material, exists := bucket[component.Name]
	if !exists {
		bucket[component.Name] = entities.AggregatedMaterial{
			Name:     component.Name,
			Category: category,
			Quantity: contribution,
			Unit:     unit,
		}
		return nil
	}

	if material.Unit != unit {
		return &entities.ValidationError{
			Field:  "ingredient unit",
			Value:  component.Name,
			Reason: fmt.Sprintf("%s cannot be added to %s", unit, material.Unit),
		}
	}
	material.Quantity = material.Quantity.Add(contribution)
	bucket[component.Name] = material
	return nil
}

var (
	thousand   = decimal.NewFromInt(1000)
	thousandth = decimal.New(1, -3)
)

// NormalizeRecipeUnit rewrites mass amounts to grams and volume amounts to millilitres
// so the same ingredient entered in different units can be summed. Unknown units pass through.
func NormalizeRecipeUnit(unit string, amount decimal.Decimal) (string, decimal.Decimal) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mg":
		return "g", amount.Mul(thousandth)
	case "g", "gr", "gram", "grams":
		return "g", amount
	case "kg":
		return "g", amount.Mul(thousand)
	case "ml":
		return "ml", amount
	case "l", "lt", "liter", "litre":
		return "ml", amount.Mul(thousand)
	case "pc", "pcs", "piece", "pieces":
		return "pcs", amount
	default:
		return unit, amount
	}
}
