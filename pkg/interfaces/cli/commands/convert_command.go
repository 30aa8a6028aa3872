package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/services"
)

// ConvertConfig holds configuration for the convert command
type ConvertConfig struct {
	Catalog CatalogFiles
	Item    string
	// Quantity is decomposed into display units when Entries is empty,
	// otherwise it is the plain base-unit part of the composed total
	Quantity string
	Entries  string
	Help     bool

	Out io.Writer
}

// ConvertCommand converts between base units and display units of one item
type ConvertCommand struct {
	config ConvertConfig
	out    io.Writer
}

// NewConvertCommand creates a new convert command with the given configuration
func NewConvertCommand(config ConvertConfig) *ConvertCommand {
	return &ConvertCommand{
		config: config,
		out:    writerOrStdout(config.Out),
	}
}

// Execute runs the convert command
func (c *ConvertCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.config.Item == "" {
		return fmt.Errorf("validation error: --item is required")
	}
	if c.config.Quantity == "" && c.config.Entries == "" {
		return fmt.Errorf("validation error: --qty or --entries is required")
	}

	cat, err := loadCatalog(c.config.Catalog)
	if err != nil {
		return err
	}

	items, err := cat.items.GetAllItems()
	if err != nil {
		return fmt.Errorf("failed to read items: %w", err)
	}
	measurements, err := cat.items.GetAllMeasurements()
	if err != nil {
		return fmt.Errorf("failed to read measurements: %w", err)
	}
	registry, err := services.NewMeasurementRegistry(items, measurements)
	if err != nil {
		return err
	}
	converter := services.NewQuantityConverter(registry)

	itemID := entities.ItemID(c.config.Item)
	if _, ok := registry.Item(itemID); !ok {
		return &entities.ValidationError{Field: "item id", Value: c.config.Item, Reason: "unknown item"}
	}
	baseUnit := registry.BaseUnitLabel(itemID)

	qty, err := parseQuantity("quantity", c.config.Quantity)
	if err != nil {
		return err
	}

	if c.config.Entries == "" {
		return c.decompose(converter, itemID, qty, baseUnit)
	}

	entries, err := parseEntries(c.config.Entries)
	if err != nil {
		return err
	}
	total, err := converter.Compose(itemID, entries, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", total.String(), baseUnit)
	return nil
}

func (c *ConvertCommand) decompose(converter *services.QuantityConverter, itemID entities.ItemID, total decimal.Decimal, baseUnit string) error {
	decomposition, err := converter.Decompose(itemID, total)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "📦 %s %s of %s\n", total.String(), baseUnit, itemID)
	for _, entry := range decomposition.Breakdown {
		fmt.Fprintf(c.out, "  %-10s %8d x %s\n", entry.Unit, entry.Count, entry.Factor.String())
	}
	fmt.Fprintf(c.out, "  %-10s %8s\n", "remainder", decomposition.Remainder.String())
	fmt.Fprintf(c.out, "= %s\n", services.FormatDecomposition(decomposition, baseUnit))
	return nil
}

func (c *ConvertCommand) showHelp() {
	fmt.Fprint(c.out, `foodplan convert - convert between base units and display units

USAGE:
    foodplan convert --scenario <dir> --item <id> --qty <n>
    foodplan convert --scenario <dir> --item <id> --entries box=2,pack=1 [--qty <plain base units>]

Without --entries the quantity is split into the item's measurements, largest first.
With --entries the counts are multiplied by their factors and added to --qty.
`)
}
