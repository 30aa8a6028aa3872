package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/infrastructure/adapters"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
)

// CatalogFiles names the catalog inputs shared by the bom, convert and stock commands.
// A scenario directory fills in items.csv, measurements.csv and edges.csv; a catalog
// document (json or msgpack) replaces all three.
type CatalogFiles struct {
	ScenarioDir      string
	ItemsFile        string
	MeasurementsFile string
	EdgesFile        string
	CatalogFile      string
}

// catalog is the loaded item master with its measurements and the edges found in the inputs
type catalog struct {
	items *memory.ItemRepository
	edges []entities.CompositionEdge
}

func (f CatalogFiles) resolve() CatalogFiles {
	if f.ScenarioDir == "" {
		return f
	}
	if f.ItemsFile == "" {
		f.ItemsFile = filepath.Join(f.ScenarioDir, "items.csv")
	}
	if f.MeasurementsFile == "" {
		f.MeasurementsFile = optionalFile(filepath.Join(f.ScenarioDir, "measurements.csv"))
	}
	if f.EdgesFile == "" {
		f.EdgesFile = optionalFile(filepath.Join(f.ScenarioDir, "edges.csv"))
	}
	return f
}

func (f CatalogFiles) validate() error {
	if f.CatalogFile == "" && f.ScenarioDir == "" && f.ItemsFile == "" {
		return fmt.Errorf("must specify --scenario, --items or --catalog")
	}
	return nil
}

// optionalFile returns path when it exists, otherwise an empty string
func optionalFile(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadCatalog(files CatalogFiles) (*catalog, error) {
	if err := files.validate(); err != nil {
		return nil, err
	}
	files = files.resolve()

	var (
		items        []*entities.Item
		measurements []*entities.MeasurementUnit
		edges        []entities.CompositionEdge
	)

	if files.CatalogFile != "" {
		doc, err := decodeCatalogFile(files.CatalogFile)
		if err != nil {
			return nil, err
		}
		items, measurements, edges = doc.Items, doc.Measurements, doc.Edges
	} else {
		loader := csv.NewLoader()

		var err error
		items, err = loader.LoadItems(files.ItemsFile)
		if err != nil {
			return nil, fmt.Errorf("error loading items: %w", err)
		}
		if files.MeasurementsFile != "" {
			measurements, err = loader.LoadMeasurements(files.MeasurementsFile)
			if err != nil {
				return nil, fmt.Errorf("error loading measurements: %w", err)
			}
		}
		if files.EdgesFile != "" {
			edges, err = loader.LoadEdges(files.EdgesFile)
			if err != nil {
				return nil, fmt.Errorf("error loading edges: %w", err)
			}
		}
	}

	repo := memory.NewItemRepository(len(items))
	if err := repo.LoadItems(items); err != nil {
		return nil, fmt.Errorf("failed to load items into repository: %w", err)
	}
	if err := repo.LoadMeasurements(measurements); err != nil {
		return nil, fmt.Errorf("failed to load measurements into repository: %w", err)
	}

	return &catalog{items: repo, edges: edges}, nil
}

func decodeCatalogFile(path string) (*adapters.Catalog, error) {
	format, err := adapters.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file %s: %w", path, err)
	}
	defer file.Close()

	doc, err := adapters.DecodeCatalog(file, format)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog %s: %w", path, err)
	}
	return doc, nil
}

// loadRecipes reads a long-format recipe CSV or a json/msgpack recipe document
func loadRecipes(path string) ([]entities.ProductRecipe, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		recipes, err := csv.NewLoader().LoadRecipes(path)
		if err != nil {
			return nil, fmt.Errorf("error loading recipes: %w", err)
		}
		return recipes, nil
	}

	format, err := adapters.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipes file %s: %w", path, err)
	}
	defer file.Close()

	recipes, err := adapters.DecodeRecipes(file, format)
	if err != nil {
		return nil, fmt.Errorf("error loading recipes: %w", err)
	}
	return recipes, nil
}

// parseEntries parses "box=2,pack=1" into measurement entries
func parseEntries(s string) ([]entities.MeasurementEntry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var entries []entities.MeasurementEntry
	for _, part := range strings.Split(s, ",") {
		id, count, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid entry %q (expected measurement=count)", part)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(count), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid count in entry %q", part)
		}
		entries = append(entries, entities.MeasurementEntry{
			MeasurementID: entities.MeasurementID(strings.TrimSpace(id)),
			Count:         n,
		})
	}
	return entries, nil
}

// parseQuantity parses an optional decimal flag; empty means zero
func parseQuantity(name, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	qty, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", name, s)
	}
	return qty, nil
}

func writerOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
