package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// Loader handles loading catalog, composition and planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// readRecords opens a CSV file and returns its records, requiring a header and one data row
func readRecords(filename, kind string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	return records, nil
}

// LoadItems loads catalog items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	records, err := readRecords(filename, "items")
	if err != nil {
		return nil, err
	}

	// Validate header
	expectedHeader := []string{"id", "code", "name", "class", "base_unit", "is_producible"}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("items CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	var items []*entities.Item
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("items CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// LoadMeasurements loads item measurements from a CSV file
func (l *Loader) LoadMeasurements(filename string) ([]*entities.MeasurementUnit, error) {
	records, err := readRecords(filename, "measurements")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"id", "item_id", "unit", "factor_to_base"}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("measurements CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	var measurements []*entities.MeasurementUnit
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("measurements CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		factor, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("measurements CSV row %d: invalid factor_to_base: %s", i+2, record[3])
		}

		m, err := entities.NewMeasurementUnit(
			entities.MeasurementID(strings.TrimSpace(record[0])),
			entities.ItemID(strings.TrimSpace(record[1])),
			strings.TrimSpace(record[2]),
			factor,
		)
		if err != nil {
			return nil, fmt.Errorf("measurements CSV row %d: %w", i+2, err)
		}

		measurements = append(measurements, m)
	}

	return measurements, nil
}

// LoadEdges loads composition edges from a CSV file. The active column may be left
// empty, which means active.
func (l *Loader) LoadEdges(filename string) ([]entities.CompositionEdge, error) {
	records, err := readRecords(filename, "edges")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"id", "parent_item_id", "component_item_id", "quantity", "unit_id", "optional", "active"}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("edges CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	var edges []entities.CompositionEdge
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("edges CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		edge, err := parseEdge(record)
		if err != nil {
			return nil, fmt.Errorf("edges CSV row %d: %w", i+2, err)
		}

		edges = append(edges, edge)
	}

	return edges, nil
}

// LoadTargets loads the wide production target grid: one product per row, one
// location per column after the first. Empty cells mean zero.
func (l *Loader) LoadTargets(filename string) ([]entities.ProductionTargetRow, error) {
	records, err := readRecords(filename, "targets")
	if err != nil {
		return nil, err
	}

	header := records[0]
	if len(header) < 2 || strings.ToLower(strings.TrimSpace(header[0])) != "product" {
		return nil, fmt.Errorf("targets CSV header must start with product followed by location columns, got %v", header)
	}

	locations := make([]string, 0, len(header)-1)
	seen := make(map[string]bool, len(header)-1)
	for _, col := range header[1:] {
		location := strings.TrimSpace(col)
		if location == "" {
			return nil, fmt.Errorf("targets CSV header has an empty location column")
		}
		if seen[location] {
			return nil, fmt.Errorf("targets CSV header repeats location %s", location)
		}
		seen[location] = true
		locations = append(locations, location)
	}

	var rows []entities.ProductionTargetRow
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("targets CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}

		quantities := make(map[string]int64, len(locations))
		for j, location := range locations {
			cell := strings.TrimSpace(record[j+1])
			if cell == "" {
				continue
			}
			qty, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("targets CSV row %d: invalid quantity for %s: %s", i+2, location, cell)
			}
			quantities[location] = qty
		}

		row, err := entities.NewProductionTargetRow(strings.TrimSpace(record[0]), quantities)
		if err != nil {
			return nil, fmt.Errorf("targets CSV row %d: %w", i+2, err)
		}

		rows = append(rows, *row)
	}

	return rows, nil
}

// LoadRecipes loads recipes from a long-format CSV, one ingredient per row
func (l *Loader) LoadRecipes(filename string) ([]entities.ProductRecipe, error) {
	records, err := readRecords(filename, "recipes")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product", "category", "ingredient", "per_unit_amount", "unit"}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("recipes CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	recipes := make(map[string]*entities.ProductRecipe)
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("recipes CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		product := strings.TrimSpace(record[0])
		if product == "" {
			return nil, fmt.Errorf("recipes CSV row %d: product cannot be empty", i+2)
		}

		category, err := entities.ParseRecipeCategory(record[1])
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: invalid per_unit_amount: %s", i+2, record[3])
		}

		unit := strings.TrimSpace(record[4])
		component, err := entities.NewRecipeComponent(strings.TrimSpace(record[2]), amount, unit, entities.UnitCategoryOf(unit))
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}

		recipe, exists := recipes[product]
		if !exists {
			recipe = &entities.ProductRecipe{Product: product}
			recipes[product] = recipe
		}
		recipe.Add(category, *component)
	}

	products := make([]string, 0, len(recipes))
	for product := range recipes {
		products = append(products, product)
	}
	sort.Strings(products)

	result := make([]entities.ProductRecipe, 0, len(products))
	for _, product := range products {
		result = append(result, *recipes[product])
	}
	return result, nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (*entities.Item, error) {
	class, err := entities.ParseItemClass(record[3])
	if err != nil {
		return nil, err
	}

	producible, err := parseBool(record[5], false)
	if err != nil {
		return nil, fmt.Errorf("invalid is_producible: %s", record[5])
	}

	item, err := entities.NewItem(
		entities.ItemID(strings.TrimSpace(record[0])),
		strings.TrimSpace(record[1]),
		strings.TrimSpace(record[2]),
		class,
		strings.TrimSpace(record[4]),
		producible,
	)
	if err != nil {
		return nil, err
	}

	return item, nil
}

func parseEdge(record []string) (entities.CompositionEdge, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return entities.CompositionEdge{}, fmt.Errorf("invalid quantity: %s", record[3])
	}

	optional, err := parseBool(record[5], false)
	if err != nil {
		return entities.CompositionEdge{}, fmt.Errorf("invalid optional: %s", record[5])
	}

	active, err := parseBool(record[6], true)
	if err != nil {
		return entities.CompositionEdge{}, fmt.Errorf("invalid active: %s", record[6])
	}

	edge, err := entities.NewCompositionEdge(
		entities.EdgeID(strings.TrimSpace(record[0])),
		entities.ItemID(strings.TrimSpace(record[1])),
		entities.ItemID(strings.TrimSpace(record[2])),
		qty,
		entities.MeasurementID(strings.TrimSpace(record[4])),
		optional,
	)
	if err != nil {
		return entities.CompositionEdge{}, err
	}
	edge.Active = active

	return *edge, nil
}

func parseBool(s string, empty bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return empty, nil
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", s)
	}
}
