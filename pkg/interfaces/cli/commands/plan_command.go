package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/services/planning"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/foodplan/pkg/interfaces/cli/output"
)

// PlanConfig holds configuration for the plan command
type PlanConfig struct {
	ScenarioDir         string
	TargetsFile         string
	RecipesFile         string
	OutputDir           string
	Format              string
	FailOnMissingRecipe bool
	Verbose             bool
	Help                bool

	Logger *zap.Logger
	Out    io.Writer
}

// PlanCommand expands a production target grid into a materials report
type PlanCommand struct {
	config PlanConfig
	out    io.Writer
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config PlanConfig) *PlanCommand {
	return &PlanCommand{
		config: config,
		out:    writerOrStdout(config.Out),
	}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	if c.config.Verbose {
		c.printHeader(files)
		fmt.Fprintln(c.out, "📂 Loading targets and recipes...")
	}

	rows, err := csv.NewLoader().LoadTargets(files["Targets"])
	if err != nil {
		return fmt.Errorf("error loading targets: %w", err)
	}

	recipes, err := loadRecipes(files["Recipes"])
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Fprintf(c.out, "✅ Data loaded successfully:\n")
		fmt.Fprintf(c.out, "  Product rows: %d\n", len(rows))
		fmt.Fprintf(c.out, "  Recipes: %d\n", len(recipes))
		fmt.Fprintln(c.out)
	}

	recipeRepo := memory.NewRecipeRepository()
	if err := recipeRepo.LoadRecipes(recipes); err != nil {
		return fmt.Errorf("failed to load recipes into repository: %w", err)
	}

	store := events.NewInMemoryEventStore(c.config.Logger)
	notices := newEventNotices(events.RecipeMissingEvent, events.PlanProcessedEvent)
	if c.config.Verbose {
		if err := notices.subscribe(store); err != nil {
			return err
		}
	}
	service := planning.NewPlanningService(
		recipeRepo,
		memory.NewPlanArchive(),
		store,
		c.config.Logger,
		planning.Options{FailOnMissingRecipe: c.config.FailOnMissingRecipe},
	)

	if c.config.Verbose {
		fmt.Fprintln(c.out, "🔄 Expanding production targets...")
	}

	startTime := time.Now()
	report, err := service.Plan(ctx, rows)
	processTime := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("error expanding plan: %w", err)
	}

	if c.config.Verbose {
		store.Wait()
		notices.flush(c.out)
		fmt.Fprintf(c.out, "✅ Plan %s expanded in %v\n\n", report.PlanID, processTime)
	}

	err = output.Generate(report, output.Config{
		Format:      c.config.Format,
		OutputDir:   c.config.OutputDir,
		Verbose:     c.config.Verbose,
		ProcessTime: processTime,
		Writer:      c.out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		recorded, err := store.ReadAllEvents(0)
		if err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}
		fmt.Fprintf(c.out, "🏁 Planning complete (%d events)\n", len(recorded))
	}

	return nil
}

// validateInputs validates the command configuration
func (c *PlanCommand) validateInputs() error {
	if c.config.ScenarioDir == "" && (c.config.TargetsFile == "" || c.config.RecipesFile == "") {
		return fmt.Errorf("must specify either --scenario directory or --targets and --recipes files")
	}
	return nil
}

// resolveInputFiles determines the actual file paths to use
func (c *PlanCommand) resolveInputFiles() (map[string]string, error) {
	targetsPath := c.config.TargetsFile
	recipesPath := c.config.RecipesFile

	if c.config.ScenarioDir != "" {
		if targetsPath == "" {
			targetsPath = filepath.Join(c.config.ScenarioDir, "targets.csv")
		}
		if recipesPath == "" {
			recipesPath = scenarioRecipes(c.config.ScenarioDir)
		}
	}

	files := map[string]string{
		"Targets": targetsPath,
		"Recipes": recipesPath,
	}

	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	return files, nil
}

// scenarioRecipes picks the first recipe document present in a scenario directory
func scenarioRecipes(dir string) string {
	for _, name := range []string{"recipes.json", "recipes.msgpack", "recipes.csv"} {
		if path := optionalFile(filepath.Join(dir, name)); path != "" {
			return path
		}
	}
	return filepath.Join(dir, "recipes.json")
}

func (c *PlanCommand) printHeader(files map[string]string) {
	fmt.Fprintf(c.out, "🚀 Foodplan production planning\n")
	fmt.Fprintf(c.out, "Input files:\n")
	fmt.Fprintf(c.out, "  Targets: %s\n", files["Targets"])
	fmt.Fprintf(c.out, "  Recipes: %s\n", files["Recipes"])
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

func (c *PlanCommand) showHelp() {
	fmt.Fprint(c.out, `foodplan plan - expand a production target grid into raw-material requirements

USAGE:
    foodplan plan --scenario <directory>
    foodplan plan --targets <file> --recipes <file>

OPTIONS:
    --scenario <dir>           Directory containing targets.csv and recipes.json|msgpack|csv
    --targets <file>           Production target grid CSV
    --recipes <file>           Recipe book (csv, json or msgpack)
    --output <dir>             Output directory (required for xlsx and msgpack)
    --format <fmt>             text, json, csv, xlsx or msgpack (default: text)
    --fail-on-missing-recipe   Treat a product without recipe as an error
    --verbose                  Enable verbose output

FILE FORMATS:

targets.csv:
    product,LocX,LocY
    ProductA,10,5
    ProductB,4,

recipes.csv:
    product,category,ingredient,per_unit_amount,unit
    ProductA,dough,Flour,80,g
    ProductA,filling,Cheese,0.02,kg

recipes.json:
    {"ProductA": {"dough": [{"name": "Flour", "perUnit": 80, "unit": "g"}]}}
`)
}
