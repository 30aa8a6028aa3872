package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/infrastructure/config"
	"github.com/vsinha/foodplan/pkg/infrastructure/logging"
	"github.com/vsinha/foodplan/pkg/interfaces/cli/commands"
)

// application carries what every subcommand needs once the root flags are parsed
type application struct {
	configFile string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func (a *application) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "foodplan",
		Short:         "BOM resolution and material planning for multi-location food production",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: ./configs/config.yaml or ./config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		a.planCommand(),
		a.bomCommand(),
		a.convertCommand(),
		a.stockCommand(),
		a.generateCommand(),
		a.sessionCommand(),
	)
	return root
}

func (a *application) setup() error {
	cfg, err := config.LoadFile(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *application) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// catalogFlags registers the catalog input flags shared by several commands
func catalogFlags(cmd *cobra.Command, files *commands.CatalogFiles) {
	cmd.Flags().StringVar(&files.ScenarioDir, "scenario", "", "Scenario directory with items.csv, measurements.csv and edges.csv")
	cmd.Flags().StringVar(&files.ItemsFile, "items", "", "Items CSV file")
	cmd.Flags().StringVar(&files.MeasurementsFile, "measurements", "", "Measurements CSV file")
	cmd.Flags().StringVar(&files.EdgesFile, "edges", "", "Composition edges CSV file")
	cmd.Flags().StringVar(&files.CatalogFile, "catalog", "", "Catalog document (json or msgpack)")
}

// dbPath returns the flag value, falling back to the configured database
func (a *application) dbPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Database.Path
}

func (a *application) planCommand() *cobra.Command {
	var config commands.PlanConfig

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Expand a production target grid into raw-material requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				config.Format = a.cfg.Output.Format
			}
			if config.OutputDir == "" {
				config.OutputDir = a.cfg.Output.Directory
			}
			config.FailOnMissingRecipe = config.FailOnMissingRecipe || a.cfg.Planning.FailOnMissingRecipe
			config.Verbose = a.verbose
			config.Logger = a.logger
			config.Out = cmd.OutOrStdout()
			return commands.NewPlanCommand(config).Execute(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&config.ScenarioDir, "scenario", "", "Scenario directory with targets.csv and recipes")
	cmd.Flags().StringVar(&config.TargetsFile, "targets", "", "Production target grid CSV")
	cmd.Flags().StringVar(&config.RecipesFile, "recipes", "", "Recipe book (csv, json or msgpack)")
	cmd.Flags().StringVar(&config.OutputDir, "output", "", "Output directory for results")
	cmd.Flags().StringVar(&config.Format, "format", "text", "Output format: text, json, csv, xlsx or msgpack")
	cmd.Flags().BoolVar(&config.FailOnMissingRecipe, "fail-on-missing-recipe", false, "Fail when a product has no recipe")
	return cmd
}

func (a *application) bomCommand() *cobra.Command {
	bom := &cobra.Command{
		Use:   "bom",
		Short: "Validate, edit and explode the composition graph",
	}

	for _, action := range []struct {
		name  string
		short string
	}{
		{commands.BOMValidate, "Check the graph for cycles, duplicates and unknown items"},
		{commands.BOMAdd, "Insert or edit an edge; rejected if it would close a cycle"},
		{commands.BOMRemove, "Deactivate an edge"},
		{commands.BOMExplode, "Show the leaf requirements of an item quantity"},
		{commands.BOMImport, "Load a whole edge set into the database after validating it"},
	} {
		bom.AddCommand(a.bomAction(action.name, action.short))
	}
	return bom
}

func (a *application) bomAction(action, short string) *cobra.Command {
	config := commands.BOMConfig{Action: action}
	var db string

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch action {
			case commands.BOMAdd, commands.BOMRemove, commands.BOMImport:
				config.DBPath = a.dbPath(db)
			default:
				config.DBPath = db
			}
			if action == commands.BOMExplode && !cmd.Flags().Changed("include-optional") {
				config.IncludeOptional = a.cfg.Planning.IncludeOptional
			}
			config.MaxOpenConns = a.cfg.Database.MaxOpenConns
			config.Verbose = a.verbose
			config.Logger = a.logger
			config.Out = cmd.OutOrStdout()
			return commands.NewBOMCommand(config).Execute(cmd.Context())
		},
	}

	catalogFlags(cmd, &config.Catalog)
	cmd.Flags().StringVar(&db, "db", "", "Sqlite database holding the composition graph")

	switch action {
	case commands.BOMAdd:
		cmd.Flags().StringVar(&config.EdgeID, "edge", "", "Id of the edge to edit (empty inserts a new edge)")
		cmd.Flags().StringVar(&config.Parent, "parent", "", "Parent item id")
		cmd.Flags().StringVar(&config.Component, "component", "", "Component item id")
		cmd.Flags().StringVar(&config.Quantity, "qty", "", "Quantity per parent unit")
		cmd.Flags().StringVar(&config.Unit, "unit", "", "Measurement id of the quantity (default: base unit)")
		cmd.Flags().BoolVar(&config.Optional, "optional", false, "Mark the component as optional")
	case commands.BOMRemove:
		cmd.Flags().StringVar(&config.EdgeID, "edge", "", "Id of the edge to remove")
	case commands.BOMExplode:
		cmd.Flags().StringVar(&config.Item, "item", "", "Item to explode")
		cmd.Flags().StringVar(&config.Quantity, "qty", "", "Quantity in base units")
		cmd.Flags().BoolVar(&config.IncludeOptional, "include-optional", false, "Follow optional edges")
	}
	return cmd
}

func (a *application) convertCommand() *cobra.Command {
	var config commands.ConvertConfig

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between base units and display units",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Out = cmd.OutOrStdout()
			return commands.NewConvertCommand(config).Execute(cmd.Context())
		},
	}

	catalogFlags(cmd, &config.Catalog)
	cmd.Flags().StringVar(&config.Item, "item", "", "Item id")
	cmd.Flags().StringVar(&config.Quantity, "qty", "", "Base-unit quantity")
	cmd.Flags().StringVar(&config.Entries, "entries", "", "Measurement counts to compose, e.g. box=2,pack=1")
	return cmd
}

func (a *application) stockCommand() *cobra.Command {
	stock := &cobra.Command{
		Use:   "stock",
		Short: "Record stock movements and read balances",
	}

	for _, action := range []struct {
		name  string
		short string
	}{
		{commands.StockMove, "Record an inbound or outbound movement"},
		{commands.StockTransfer, "Move stock between two locations"},
		{commands.StockBalance, "Show the balance of an item at a location"},
		{commands.StockHistory, "List the movements of an item at a location"},
	} {
		stock.AddCommand(a.stockAction(action.name, action.short))
	}
	return stock
}

func (a *application) stockAction(action, short string) *cobra.Command {
	config := commands.StockConfig{Action: action}
	var db string

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.DBPath = a.dbPath(db)
			config.MaxOpenConns = a.cfg.Database.MaxOpenConns
			config.Verbose = a.verbose
			config.Logger = a.logger
			config.Out = cmd.OutOrStdout()
			return commands.NewStockCommand(config).Execute(cmd.Context())
		},
	}

	catalogFlags(cmd, &config.Catalog)
	cmd.Flags().StringVar(&db, "db", "", "Sqlite database holding the stock ledger")
	cmd.Flags().StringVar(&config.Item, "item", "", "Item id")
	cmd.Flags().StringVar(&config.Location, "location", "", "Location (source location of a transfer)")

	switch action {
	case commands.StockMove:
		cmd.Flags().StringVar(&config.Type, "type", "", "IN, OUT or LEFTOVER_RETURN")
		fallthrough
	case commands.StockTransfer:
		cmd.Flags().StringVar(&config.Quantity, "qty", "", "Plain base-unit quantity")
		cmd.Flags().StringVar(&config.Entries, "entries", "", "Measurement counts, e.g. box=2,pack=1")
		cmd.Flags().StringVar(&config.Note, "note", "", "Free-text note stored with the movement")
	}
	if action == commands.StockTransfer {
		cmd.Flags().StringVar(&config.To, "to", "", "Destination location")
	}
	return cmd
}

func (a *application) generateCommand() *cobra.Command {
	var config commands.GenerateConfig

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic production scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Verbose = a.verbose
			config.Out = cmd.OutOrStdout()
			return commands.NewGenerateCommand(config).Execute(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&config.Items, "items", 0, "Number of catalog items to generate")
	cmd.Flags().IntVar(&config.MaxDepth, "max-depth", 0, "Maximum depth of the composition graph")
	cmd.Flags().IntVar(&config.Products, "products", 0, "Number of finished goods")
	cmd.Flags().IntVar(&config.Locations, "locations", 3, "Number of locations in the target grid")
	cmd.Flags().StringVar(&config.OutputDir, "output", "", "Output directory for generated files")
	cmd.Flags().Int64Var(&config.Seed, "seed", 0, "Random seed for reproducible generation")
	return cmd
}

func (a *application) sessionCommand() *cobra.Command {
	var config commands.SessionConfig

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Edit the composition graph interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.MaxOpenConns = a.cfg.Database.MaxOpenConns
			config.Verbose = a.verbose
			config.Logger = a.logger
			config.In = cmd.InOrStdin()
			config.Out = cmd.OutOrStdout()
			return commands.NewSessionCommand(config).Execute(cmd.Context())
		},
	}

	catalogFlags(cmd, &config.Catalog)
	cmd.Flags().StringVar(&config.DBPath, "db", "", "Sqlite database to edit (default: edit the scenario edges in memory)")
	return cmd
}
