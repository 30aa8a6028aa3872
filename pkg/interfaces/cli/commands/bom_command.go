package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/services/composition"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
	"github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/sqlite"
)

// BOM command actions
const (
	BOMValidate = "validate"
	BOMAdd      = "add"
	BOMRemove   = "remove"
	BOMExplode  = "explode"
	BOMImport   = "import"
)

// BOMConfig holds configuration for the bom command
type BOMConfig struct {
	Action  string
	Catalog CatalogFiles

	// DBPath selects the sqlite composition store; without it the edges of the
	// catalog inputs are used read-only
	DBPath       string
	MaxOpenConns int

	EdgeID          string
	Parent          string
	Component       string
	Quantity        string
	Unit            string
	Optional        bool
	Item            string
	IncludeOptional bool

	Verbose bool
	Help    bool

	Logger *zap.Logger
	Out    io.Writer
}

// BOMCommand validates, edits and explodes the composition graph
type BOMCommand struct {
	config BOMConfig
	out    io.Writer
}

// NewBOMCommand creates a new bom command with the given configuration
func NewBOMCommand(config BOMConfig) *BOMCommand {
	return &BOMCommand{
		config: config,
		out:    writerOrStdout(config.Out),
	}
}

// Execute runs the bom command
func (c *BOMCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.out, "📂 Loading catalog...")
	}
	cat, err := loadCatalog(c.config.Catalog)
	if err != nil {
		return err
	}

	edges, closeStore, err := c.openEdges(cat)
	if err != nil {
		return err
	}
	defer closeStore()

	store := events.NewInMemoryEventStore(c.config.Logger)
	service := composition.NewCompositionService(cat.items, cat.items, edges, store, c.config.Logger)

	switch c.config.Action {
	case BOMValidate:
		return c.validate(ctx, service)
	case BOMAdd:
		return c.add(ctx, service)
	case BOMRemove:
		return c.remove(ctx, service)
	case BOMExplode:
		return c.explode(ctx, service)
	case BOMImport:
		return c.importEdges(ctx, service, cat.edges)
	}
	return nil
}

func (c *BOMCommand) validateInputs() error {
	switch c.config.Action {
	case BOMValidate:
	case BOMAdd:
		if c.config.Parent == "" || c.config.Component == "" || c.config.Quantity == "" {
			return fmt.Errorf("add requires --parent, --component and --qty")
		}
	case BOMRemove:
		if c.config.EdgeID == "" {
			return fmt.Errorf("remove requires --edge")
		}
	case BOMExplode:
		if c.config.Item == "" || c.config.Quantity == "" {
			return fmt.Errorf("explode requires --item and --qty")
		}
	case BOMImport:
	default:
		return fmt.Errorf("unknown bom action: %q (expected validate, add, remove, explode or import)", c.config.Action)
	}

	switch c.config.Action {
	case BOMAdd, BOMRemove, BOMImport:
		if c.config.DBPath == "" {
			return fmt.Errorf("%s requires --db", c.config.Action)
		}
	}
	return nil
}

// openEdges returns the sqlite store when a database is configured, otherwise a
// memory repository holding the edges of the catalog inputs
func (c *BOMCommand) openEdges(cat *catalog) (repositories.CompositionRepository, func(), error) {
	if c.config.DBPath == "" {
		repo := memory.NewCompositionRepository(len(cat.edges))
		if err := repo.LoadEdges(cat.edges); err != nil {
			return nil, nil, fmt.Errorf("failed to load edges into repository: %w", err)
		}
		return repo, func() {}, nil
	}

	store, err := sqlite.Open(c.config.DBPath, c.config.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil && c.config.Logger != nil {
			c.config.Logger.Warn("failed to close database", zap.Error(err))
		}
	}, nil
}

func (c *BOMCommand) validate(ctx context.Context, service *composition.CompositionService) error {
	if c.config.Verbose {
		fmt.Fprintln(c.out, "🔍 Validating composition graph...")
	}
	result, err := service.Validate(ctx)
	if err != nil {
		return err
	}
	c.printValidation(result)
	if !result.IsValid() {
		return fmt.Errorf("composition graph is invalid: %d problem(s)", len(result.Errors))
	}
	return nil
}

func (c *BOMCommand) add(ctx context.Context, service *composition.CompositionService) error {
	qty, err := parseQuantity("quantity", c.config.Quantity)
	if err != nil {
		return err
	}

	edge, err := service.SaveEdge(ctx, services.EdgeCommand{
		EdgeID:      entities.EdgeID(c.config.EdgeID),
		ParentID:    entities.ItemID(c.config.Parent),
		ComponentID: entities.ItemID(c.config.Component),
		Quantity:    qty,
		UnitID:      entities.MeasurementID(c.config.Unit),
		Optional:    c.config.Optional,
	})
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}

	fmt.Fprintf(c.out, "✅ Saved edge %s: %s -> %s x %s", edge.ID, edge.ParentItemID, edge.ComponentItemID, edge.QuantityPerParentUnit)
	if edge.UnitID != "" {
		fmt.Fprintf(c.out, " %s", edge.UnitID)
	}
	if edge.Optional {
		fmt.Fprint(c.out, " (optional)")
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *BOMCommand) remove(ctx context.Context, service *composition.CompositionService) error {
	edge, err := service.RemoveEdge(ctx, entities.EdgeID(c.config.EdgeID))
	if err != nil {
		return fmt.Errorf("failed to remove edge: %w", err)
	}
	fmt.Fprintf(c.out, "🗑️  Removed edge %s: %s -> %s\n", edge.ID, edge.ParentItemID, edge.ComponentItemID)
	return nil
}

func (c *BOMCommand) explode(ctx context.Context, service *composition.CompositionService) error {
	qty, err := parseQuantity("quantity", c.config.Quantity)
	if err != nil {
		return err
	}

	lines, err := service.Explode(ctx, entities.ItemID(c.config.Item), qty, c.config.IncludeOptional)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "📊 Explosion of %s x %s\n", qty, c.config.Item)
	fmt.Fprintf(c.out, "%-20s %15s %-8s %s\n", "Item", "Quantity", "Unit", "Display")
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	for _, line := range lines {
		fmt.Fprintf(c.out, "%-20s %15s %-8s %s\n", line.ItemID, line.Quantity.String(), line.Unit, line.Display)
	}
	return nil
}

func (c *BOMCommand) importEdges(ctx context.Context, service *composition.CompositionService, edges []entities.CompositionEdge) error {
	if len(edges) == 0 {
		return fmt.Errorf("no edges to import (use --edges, --scenario or --catalog)")
	}

	result, err := service.ImportEdges(ctx, edges)
	if err != nil {
		return err
	}
	if !result.IsValid() {
		c.printValidation(result)
		return fmt.Errorf("import rejected: %d problem(s)", len(result.Errors))
	}

	fmt.Fprintf(c.out, "✅ Imported %d edges into %s\n", len(edges), c.config.DBPath)
	return nil
}

func (c *BOMCommand) printValidation(result *services.ValidationResult) {
	if result.IsValid() {
		fmt.Fprintln(c.out, "✅ Composition graph is valid")
		return
	}

	fmt.Fprintf(c.out, "❌ Composition graph has %d problem(s):\n", len(result.Errors))
	for _, msg := range result.Errors {
		fmt.Fprintf(c.out, "  - %s\n", msg)
	}
	for _, path := range result.CyclePaths {
		parts := make([]string, len(path))
		for i, id := range path {
			parts[i] = string(id)
		}
		fmt.Fprintf(c.out, "  cycle: %s\n", strings.Join(parts, " -> "))
	}
}

func (c *BOMCommand) showHelp() {
	fmt.Fprint(c.out, `foodplan bom - maintain the composition graph

USAGE:
    foodplan bom validate --scenario <dir> | --items <file> --edges <file>
    foodplan bom add      --db <file> --items <file> --parent <id> --component <id> --qty <n> [--unit <id>] [--optional] [--edge <id>]
    foodplan bom remove   --db <file> --items <file> --edge <id>
    foodplan bom explode  --scenario <dir> --item <id> --qty <n> [--include-optional]
    foodplan bom import   --db <file> --catalog <file>

OPTIONS:
    --scenario <dir>       Directory containing items.csv, measurements.csv and edges.csv
    --items <file>         Items CSV
    --measurements <file>  Measurements CSV
    --edges <file>         Composition edges CSV
    --catalog <file>       Catalog document (json or msgpack) with items, measurements and edges
    --db <file>            Sqlite database holding the persisted composition graph

edges.csv:
    id,parent_item_id,component_item_id,quantity,unit_id,optional,active
    E1,FG1,SFG1,60,,false,true
`)
}
