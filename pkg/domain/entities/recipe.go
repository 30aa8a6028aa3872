package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitCategory groups recipe units that can be summed together
type UnitCategory int

const (
	Mass UnitCategory = iota
	Count
	Volume
)

// String method for UnitCategory enum
func (u UnitCategory) String() string {
	switch u {
	case Mass:
		return "mass"
	case Count:
		return "count"
	case Volume:
		return "volume"
	default:
		return "unknown"
	}
}

// UnitCategoryOf classifies a recipe unit label; unrecognized labels count as Count
func UnitCategoryOf(unit string) UnitCategory {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mg", "g", "gr", "gram", "grams", "kg":
		return Mass
	case "ml", "l", "lt", "liter", "litre":
		return Volume
	default:
		return Count
	}
}

// RecipeCategory is the section of a recipe a component belongs to
type RecipeCategory int

const (
	Dough RecipeCategory = iota
	Filling
	Topping
	RawMaterialCategory
)

// RecipeCategories lists every category in report order
var RecipeCategories = []RecipeCategory{Dough, Filling, Topping, RawMaterialCategory}

// String method for RecipeCategory enum
func (c RecipeCategory) String() string {
	switch c {
	case Dough:
		return "dough"
	case Filling:
		return "filling"
	case Topping:
		return "topping"
	case RawMaterialCategory:
		return "rawMaterial"
	default:
		return "unknown"
	}
}

// ParseRecipeCategory parses a category name as used in recipe payloads
func ParseRecipeCategory(s string) (RecipeCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dough":
		return Dough, nil
	case "filling":
		return Filling, nil
	case "topping":
		return Topping, nil
	case "rawmaterial", "raw_material", "raw":
		return RawMaterialCategory, nil
	default:
		return Dough, &ValidationError{Field: "recipe category", Value: s, Reason: "expected dough, filling, topping or rawMaterial"}
	}
}

// RecipeComponent is one ingredient needed per produced unit
type RecipeComponent struct {
	Name          string
	PerUnitAmount decimal.Decimal
	Unit          string
	UnitCategory  UnitCategory
}

// NewRecipeComponent creates a validated RecipeComponent
func NewRecipeComponent(name string, perUnit decimal.Decimal, unit string, category UnitCategory) (*RecipeComponent, error) {
	if name == "" {
		return nil, fmt.Errorf("ingredient name cannot be empty")
	}
	if perUnit.IsNegative() {
		return nil, &ValidationError{Field: "per unit amount", Value: perUnit.String(), Reason: "cannot be negative"}
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty for ingredient %s", name)
	}

	return &RecipeComponent{
		Name:          name,
		PerUnitAmount: perUnit,
		Unit:          unit,
		UnitCategory:  category,
	}, nil
}

// ProductRecipe holds the categorized ingredient lists of one product
type ProductRecipe struct {
	Product     string
	Dough       []RecipeComponent
	Filling     []RecipeComponent
	Topping     []RecipeComponent
	RawMaterial []RecipeComponent
}

// Components returns the list for a category
func (r ProductRecipe) Components(category RecipeCategory) []RecipeComponent {
	switch category {
	case Dough:
		return r.Dough
	case Filling:
		return r.Filling
	case Topping:
		return r.Topping
	case RawMaterialCategory:
		return r.RawMaterial
	default:
		return nil
	}
}

// Add appends a component to a category list
func (r *ProductRecipe) Add(category RecipeCategory, component RecipeComponent) {
	switch category {
	case Dough:
		r.Dough = append(r.Dough, component)
	case Filling:
		r.Filling = append(r.Filling, component)
	case Topping:
		r.Topping = append(r.Topping, component)
	case RawMaterialCategory:
		r.RawMaterial = append(r.RawMaterial, component)
	}
}

// RecipeBook maps exact product names to recipes
type RecipeBook map[string]ProductRecipe
