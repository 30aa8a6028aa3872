package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
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

// SessionConfig holds configuration for the interactive composition session
type SessionConfig struct {
	Catalog      CatalogFiles
	DBPath       string
	MaxOpenConns int
	Verbose      bool
	Help         bool

	Logger *zap.Logger
	In     io.Reader
	Out    io.Writer
}

// SessionCommand runs an interactive session editing the composition graph
type SessionCommand struct {
	config  SessionConfig
	service *composition.CompositionService
	edges   repositories.CompositionRepository
	store   *events.InMemoryEventStore
	notices *eventNotices
	scanner *bufio.Scanner
	out     io.Writer
}

// NewSessionCommand creates a new session command with the given configuration
func NewSessionCommand(config SessionConfig) *SessionCommand {
	in := config.In
	if in == nil {
		in = os.Stdin
	}
	return &SessionCommand{
		config:  config,
		scanner: bufio.NewScanner(in),
		out:     writerOrStdout(config.Out),
	}
}

// Execute runs the session until the input ends or the user quits
func (c *SessionCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.printHelp()
		return nil
	}

	cat, err := loadCatalog(c.config.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if c.config.DBPath != "" {
		store, err := sqlite.Open(c.config.DBPath, c.config.MaxOpenConns)
		if err != nil {
			return err
		}
		defer store.Close()
		c.edges = store
	} else {
		repo := memory.NewCompositionRepository(len(cat.edges))
		if err := repo.LoadEdges(cat.edges); err != nil {
			return fmt.Errorf("failed to load edges into repository: %w", err)
		}
		c.edges = repo
	}

	c.store = events.NewInMemoryEventStore(c.config.Logger)
	c.notices = newEventNotices(events.EdgeCreatedEvent, events.EdgeUpdatedEvent, events.EdgeRemovedEvent)
	if err := c.notices.subscribe(c.store); err != nil {
		return err
	}
	c.service = composition.NewCompositionService(cat.items, cat.items, c.edges, c.store, c.config.Logger)

	return c.runInteractiveSession(ctx)
}

func (c *SessionCommand) runInteractiveSession(ctx context.Context) error {
	fmt.Fprintln(c.out, "=== Composition Session ===")
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(c.out, "bom> ")
		if !c.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		quit, err := c.processCommand(ctx, line)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		c.store.Wait()
		c.notices.flush(c.out)
		if quit {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		fmt.Fprintln(c.out)
	}

	return c.scanner.Err()
}

func (c *SessionCommand) processCommand(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	command := parts[0]
	args := parts[1:]

	switch command {
	case "help", "h":
		c.printInteractiveHelp()
	case "add":
		return false, c.handleSave(ctx, "", args)
	case "update":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: update <edge> <parent> <component> <qty> [unit] [optional]")
		}
		return false, c.handleSave(ctx, entities.EdgeID(args[0]), args[1:])
	case "remove", "rm":
		return false, c.handleRemove(ctx, args)
	case "edges", "ls":
		return false, c.handleShowEdges(args)
	case "explode":
		return false, c.handleExplode(ctx, args)
	case "validate":
		return false, c.handleValidate(ctx)
	case "status":
		return false, c.handleStatus()
	case "events":
		return false, c.handleShowEvents(args)
	case "quit", "q", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for available commands)", command)
	}

	return false, nil
}

func (c *SessionCommand) handleSave(ctx context.Context, id entities.EdgeID, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: add <parent> <component> <qty> [unit] [optional]")
	}

	qty, err := parseQuantity("quantity", args[2])
	if err != nil {
		return err
	}

	cmd := services.EdgeCommand{
		EdgeID:      id,
		ParentID:    entities.ItemID(args[0]),
		ComponentID: entities.ItemID(args[1]),
		Quantity:    qty,
	}
	for _, arg := range args[3:] {
		if arg == "optional" {
			cmd.Optional = true
		} else {
			cmd.UnitID = entities.MeasurementID(arg)
		}
	}

	edge, err := c.service.SaveEdge(ctx, cmd)
	if err != nil {
		return err
	}

	verb := "Added"
	if id != "" {
		verb = "Updated"
	}
	fmt.Fprintf(c.out, "%s edge %s: %s -> %s x %s\n", verb, edge.ID, edge.ParentItemID, edge.ComponentItemID, edge.QuantityPerParentUnit)
	return nil
}

func (c *SessionCommand) handleRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <edge>")
	}
	edge, err := c.service.RemoveEdge(ctx, entities.EdgeID(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed edge %s: %s -> %s\n", edge.ID, edge.ParentItemID, edge.ComponentItemID)
	return nil
}

func (c *SessionCommand) handleShowEdges(args []string) error {
	var edges []entities.CompositionEdge
	var err error
	if len(args) > 0 {
		edges, err = c.edges.GetComponents(entities.ItemID(args[0]))
	} else {
		edges, err = c.edges.GetActiveEdges()
	}
	if err != nil {
		return fmt.Errorf("failed to read edges: %w", err)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ParentItemID != edges[j].ParentItemID {
			return edges[i].ParentItemID < edges[j].ParentItemID
		}
		return edges[i].ComponentItemID < edges[j].ComponentItemID
	})

	fmt.Fprintf(c.out, "=== Active Edges (%d) ===\n", len(edges))
	for _, edge := range edges {
		flags := ""
		if edge.Optional {
			flags = " (optional)"
		}
		fmt.Fprintf(c.out, "  %-10s %-15s -> %-15s %10s %s%s\n",
			edge.ID, edge.ParentItemID, edge.ComponentItemID, edge.QuantityPerParentUnit, edge.UnitID, flags)
	}
	return nil
}

func (c *SessionCommand) handleExplode(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: explode <item> <qty> [all]")
	}
	qty, err := parseQuantity("quantity", args[1])
	if err != nil {
		return err
	}
	includeOptional := len(args) > 2 && args[2] == "all"

	lines, err := c.service.Explode(ctx, entities.ItemID(args[0]), qty, includeOptional)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "=== Requirements for %s x %s ===\n", qty, args[0])
	for _, line := range lines {
		fmt.Fprintf(c.out, "  %-15s %12s %-6s %s\n", line.ItemID, line.Quantity, line.Unit, line.Display)
	}
	return nil
}

func (c *SessionCommand) handleValidate(ctx context.Context) error {
	result, err := c.service.Validate(ctx)
	if err != nil {
		return err
	}
	if result.IsValid() {
		fmt.Fprintln(c.out, "Composition graph is valid")
		return nil
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(c.out, "  - %s\n", msg)
	}
	return fmt.Errorf("composition graph has %d problem(s)", len(result.Errors))
}

func (c *SessionCommand) handleStatus() error {
	allEvents, err := c.store.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	active, err := c.edges.GetActiveEdges()
	if err != nil {
		return fmt.Errorf("failed to read edges: %w", err)
	}

	fmt.Fprintf(c.out, "=== Session Status ===\n")
	fmt.Fprintf(c.out, "Active edges: %d\n", len(active))
	fmt.Fprintf(c.out, "Events recorded: %d\n", len(allEvents))

	eventCounts := make(map[string]int)
	for _, event := range allEvents {
		eventCounts[event.Type()]++
	}
	types := make([]string, 0, len(eventCounts))
	for eventType := range eventCounts {
		types = append(types, eventType)
	}
	sort.Strings(types)
	for _, eventType := range types {
		fmt.Fprintf(c.out, "  %s: %d\n", eventType, eventCounts[eventType])
	}
	return nil
}

func (c *SessionCommand) handleShowEvents(args []string) error {
	limit := 10
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil {
			limit = l
		}
	}

	allEvents, err := c.store.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	fmt.Fprintf(c.out, "=== Recent Events (last %d) ===\n", limit)
	start := max(0, len(allEvents)-limit)
	for _, event := range allEvents[start:] {
		fmt.Fprintf(c.out, "[%s] %s -> %s\n",
			event.Timestamp().Format("15:04:05"),
			event.Type(),
			event.StreamID())
	}
	return nil
}

func (c *SessionCommand) printHelp() {
	fmt.Fprint(c.out, `foodplan session - interactive composition graph editor

USAGE:
    foodplan session --scenario <dir> [--db <file>]

Without --db the edges of the scenario are edited in memory and discarded on exit.
`)
}

func (c *SessionCommand) printInteractiveHelp() {
	fmt.Fprint(c.out, `Available commands:

  add <parent> <component> <qty> [unit] [optional]
      Link a component; rejected if it would close a cycle
      Example: add FG1 SFG1 60

  update <edge> <parent> <component> <qty> [unit] [optional]
      Change an existing edge

  remove <edge>
      Deactivate an edge

  edges [parent]
      List active edges, optionally of one parent

  explode <item> <qty> [all]
      Show leaf requirements; 'all' follows optional edges

  validate
      Check the whole graph

  status
      Show edge and event counts

  events [limit]
      Show recent events (default: 10)

  quit, q, exit
      Leave the session
`)
}
