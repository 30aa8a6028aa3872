package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/services/stock"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/sqlite"
)

// Stock command actions
const (
	StockMove     = "move"
	StockTransfer = "transfer"
	StockBalance  = "balance"
	StockHistory  = "history"
)

// StockConfig holds configuration for the stock command
type StockConfig struct {
	Action       string
	Catalog      CatalogFiles
	DBPath       string
	MaxOpenConns int

	Item     string
	Location string
	To       string
	Type     string
	Quantity string
	Entries  string
	Note     string

	Verbose bool
	Help    bool

	Logger *zap.Logger
	Out    io.Writer
}

// StockCommand records movements in the sqlite stock ledger and reports balances
type StockCommand struct {
	config StockConfig
	out    io.Writer
}

// NewStockCommand creates a new stock command with the given configuration
func NewStockCommand(config StockConfig) *StockCommand {
	return &StockCommand{
		config: config,
		out:    writerOrStdout(config.Out),
	}
}

// Execute runs the stock command
func (c *StockCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	cat, err := loadCatalog(c.config.Catalog)
	if err != nil {
		return err
	}

	ledger, err := sqlite.Open(c.config.DBPath, c.config.MaxOpenConns)
	if err != nil {
		return err
	}
	defer ledger.Close()

	service := stock.NewStockService(cat.items, cat.items, ledger, events.NewInMemoryEventStore(c.config.Logger), c.config.Logger)

	switch c.config.Action {
	case StockMove:
		return c.move(ctx, service)
	case StockTransfer:
		return c.transfer(ctx, service)
	case StockBalance:
		return c.balance(ctx, service)
	case StockHistory:
		return c.history(ctx, service)
	}
	return nil
}

func (c *StockCommand) validateInputs() error {
	switch c.config.Action {
	case StockMove, StockTransfer, StockBalance, StockHistory:
	default:
		return fmt.Errorf("unknown stock action: %q (expected move, transfer, balance or history)", c.config.Action)
	}
	if c.config.DBPath == "" {
		return fmt.Errorf("stock requires --db")
	}
	if c.config.Item == "" || c.config.Location == "" {
		return fmt.Errorf("stock requires --item and --location")
	}
	switch c.config.Action {
	case StockMove:
		if c.config.Type == "" {
			return fmt.Errorf("move requires --type")
		}
		fallthrough
	case StockTransfer:
		if c.config.Quantity == "" && c.config.Entries == "" {
			return fmt.Errorf("%s requires --qty or --entries", c.config.Action)
		}
	}
	if c.config.Action == StockTransfer && c.config.To == "" {
		return fmt.Errorf("transfer requires --to")
	}
	return nil
}

func (c *StockCommand) amounts() ([]entities.MeasurementEntry, decimal.Decimal, error) {
	entries, err := parseEntries(c.config.Entries)
	if err != nil {
		return nil, decimal.Zero, err
	}
	plain, err := parseQuantity("quantity", c.config.Quantity)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return entries, plain, nil
}

func (c *StockCommand) move(ctx context.Context, service *stock.StockService) error {
	movementType, err := entities.ParseMovementType(c.config.Type)
	if err != nil {
		return err
	}
	entries, plain, err := c.amounts()
	if err != nil {
		return err
	}

	movement, err := service.Move(ctx, stock.MoveRequest{
		ItemID:        entities.ItemID(c.config.Item),
		Location:      c.config.Location,
		Type:          movementType,
		Entries:       entries,
		PlainQuantity: plain,
		Note:          c.config.Note,
	})
	if err != nil {
		return fmt.Errorf("movement rejected: %w", err)
	}

	c.printMovement(movement)
	return c.balance(ctx, service)
}

func (c *StockCommand) transfer(ctx context.Context, service *stock.StockService) error {
	entries, plain, err := c.amounts()
	if err != nil {
		return err
	}

	movements, err := service.Transfer(ctx, stock.TransferRequest{
		ItemID:        entities.ItemID(c.config.Item),
		From:          c.config.Location,
		To:            c.config.To,
		Entries:       entries,
		PlainQuantity: plain,
		Note:          c.config.Note,
	})
	if err != nil {
		return fmt.Errorf("transfer rejected: %w", err)
	}

	for _, movement := range movements {
		c.printMovement(movement)
	}
	return nil
}

func (c *StockCommand) balance(ctx context.Context, service *stock.StockService) error {
	balance, err := service.Balance(ctx, entities.ItemID(c.config.Item), c.config.Location)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "📦 %s at %s: %s %s (%s)\n", balance.ItemID, balance.Location, balance.Quantity.String(), balance.Unit, balance.Display)
	return nil
}

func (c *StockCommand) history(ctx context.Context, service *stock.StockService) error {
	movements, err := service.History(ctx, entities.ItemID(c.config.Item), c.config.Location)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "📜 Movements of %s at %s\n", c.config.Item, c.config.Location)
	fmt.Fprintf(c.out, "%-20s %-16s %12s %12s %s\n", "Recorded", "Type", "Delta", "Balance", "Note")
	fmt.Fprintln(c.out, strings.Repeat("-", 72))
	for _, m := range movements {
		fmt.Fprintf(c.out, "%-20s %-16s %12s %12s %s\n",
			m.RecordedAt.Format("2006-01-02 15:04:05"), m.Type.String(), m.Delta.String(), m.Balance.String(), m.Note)
	}
	return nil
}

func (c *StockCommand) printMovement(m entities.StockMovement) {
	fmt.Fprintf(c.out, "✅ %s %s at %s: %s (balance %s)\n", m.Type.String(), m.ItemID, m.Location, m.Delta.String(), m.Balance.String())
}

func (c *StockCommand) showHelp() {
	fmt.Fprint(c.out, `foodplan stock - record stock movements and read balances

USAGE:
    foodplan stock move     --db <file> --scenario <dir> --item <id> --location <loc> --type IN|OUT|LEFTOVER_RETURN --qty <n> | --entries box=2
    foodplan stock transfer --db <file> --scenario <dir> --item <id> --location <from> --to <to> --qty <n> | --entries box=2
    foodplan stock balance  --db <file> --scenario <dir> --item <id> --location <loc>
    foodplan stock history  --db <file> --scenario <dir> --item <id> --location <loc>

Outbound movements larger than the current balance are rejected.
`)
}
