package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items     int    // Total number of catalog items to generate
	MaxDepth  int    // Maximum depth of the composition graph
	Products  int    // Number of finished goods (0 derives it from Items)
	Locations int    // Number of production locations in the target grid
	OutputDir string // Output directory for generated files
	Seed      int64  // Random seed for reproducible generation
	Help      bool
	Verbose   bool

	Out io.Writer
}

// GenerateCommand writes a synthetic food production scenario
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Locations <= 0 {
		config.Locations = 3
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    writerOrStdout(config.Out),
	}
}

// ItemNode is one item of the generated composition graph
type ItemNode struct {
	ID       string
	Name     string
	Level    int
	Children []*ItemNode
	Parents  []*ItemNode
	IsRoot   bool
	BaseUnit string
}

// edge is a generated parent-component link
type edge struct {
	parent   *ItemNode
	child    *ItemNode
	quantity decimal.Decimal
}

var ingredientNames = []string{
	"Flour", "Sugar", "Butter", "Milk", "Yeast", "Salt", "Cheese", "Ham",
	"Tomato", "Olive Oil", "Sesame", "Egg", "Chocolate", "Cream", "Box", "Wrapper",
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}

	if cmd.config.Items < 2 || cmd.config.MaxDepth < 1 || cmd.config.OutputDir == "" {
		return fmt.Errorf("validation error: --items (at least 2), --max-depth and --output are required")
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "🔧 Generating scenario with %d items, max depth %d, %d locations\n",
			cmd.config.Items, cmd.config.MaxDepth, cmd.config.Locations)
		fmt.Fprintf(cmd.out, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(cmd.out, "🎲 Random seed: %d\n", cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	nodes, edges := cmd.generateGraph()

	steps := []struct {
		name  string
		write func([]*ItemNode, []edge) error
	}{
		{"items.csv", cmd.generateItems},
		{"measurements.csv", cmd.generateMeasurements},
		{"edges.csv", cmd.generateEdges},
		{"recipes.csv", cmd.generateRecipes},
		{"targets.csv", cmd.generateTargets},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cmd.config.Verbose {
			fmt.Fprintf(cmd.out, "📦 Generating %s...\n", step.name)
		}
		if err := step.write(nodes, edges); err != nil {
			return fmt.Errorf("failed to generate %s: %w", step.name, err)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

// generateGraph builds a layered acyclic graph: finished goods at level 0, semi-finished
// goods below them and raw materials as leaves. Shared components are only linked
// when they are not an ancestor of the new parent.
func (cmd *GenerateCommand) generateGraph() ([]*ItemNode, []edge) {
	var nodes []*ItemNode
	var edges []edge

	numRoots := cmd.config.Products
	if numRoots <= 0 {
		numRoots = max(1, cmd.config.Items/10+cmd.rand.Intn(3))
	}
	numRoots = min(numRoots, cmd.config.Items-1)

	var roots []*ItemNode
	for i := 0; i < numRoots; i++ {
		node := &ItemNode{
			ID:       fmt.Sprintf("FG_%03d", i+1),
			Name:     fmt.Sprintf("Product %03d", i+1),
			IsRoot:   true,
			BaseUnit: "pcs",
		}
		nodes = append(nodes, node)
		roots = append(roots, node)
	}

	generated := numRoots
	currentLevel := roots
	level := 0

	for level < cmd.config.MaxDepth && generated < cmd.config.Items {
		level++
		var nextLevel []*ItemNode

		for _, parent := range currentLevel {
			numChildren := 2 + cmd.rand.Intn(4)

			for child := 0; child < numChildren && generated < cmd.config.Items; child++ {
				var childNode *ItemNode
				if level > 1 && cmd.rand.Float64() < 0.2 {
					candidates := cmd.findShareableItems(nodes, level, parent)
					if len(candidates) > 0 {
						childNode = candidates[cmd.rand.Intn(len(candidates))]
					}
				}

				if childNode == nil {
					childNode = &ItemNode{
						ID:    fmt.Sprintf("ITEM_L%d_%04d", level, generated),
						Level: level,
					}
					nodes = append(nodes, childNode)
					nextLevel = append(nextLevel, childNode)
					generated++
				}

				parent.Children = append(parent.Children, childNode)
				childNode.Parents = append(childNode.Parents, parent)
				edges = append(edges, edge{parent: parent, child: childNode})
			}
		}

		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}

	for generated < cmd.config.Items && len(currentLevel) > 0 {
		node := &ItemNode{
			ID:    fmt.Sprintf("ITEM_L%d_%04d", level+1, generated),
			Level: level + 1,
		}
		parent := currentLevel[cmd.rand.Intn(len(currentLevel))]
		parent.Children = append(parent.Children, node)
		node.Parents = append(node.Parents, parent)
		nodes = append(nodes, node)
		edges = append(edges, edge{parent: parent, child: node})
		generated++
	}

	// Leaves become raw materials with a stocking unit; everything else is made in pieces
	rawIndex := 0
	for _, node := range nodes {
		if node.IsRoot {
			continue
		}
		if len(node.Children) == 0 {
			node.BaseUnit = []string{"g", "g", "ml", "pcs"}[cmd.rand.Intn(4)]
			node.Name = fmt.Sprintf("%s %d", ingredientNames[rawIndex%len(ingredientNames)], rawIndex/len(ingredientNames)+1)
			rawIndex++
		} else {
			node.BaseUnit = "pcs"
			node.Name = fmt.Sprintf("Component %s", node.ID)
		}
	}

	for i := range edges {
		edges[i].quantity = cmd.edgeQuantity(edges[i].child)
	}
	return nodes, edges
}

// findShareableItems finds existing items that can be shared without creating a cycle
func (cmd *GenerateCommand) findShareableItems(nodes []*ItemNode, maxLevel int, parent *ItemNode) []*ItemNode {
	var candidates []*ItemNode
	for _, node := range nodes {
		if node.IsRoot || node.Level < maxLevel-1 || len(node.Parents) >= 3 || node == parent {
			continue
		}
		if cmd.isAncestor(node, parent) || cmd.hasChild(parent, node) {
			continue
		}
		candidates = append(candidates, node)
	}
	return candidates
}

func (cmd *GenerateCommand) hasChild(parent, child *ItemNode) bool {
	for _, c := range parent.Children {
		if c == child {
			return true
		}
	}
	return false
}

// isAncestor checks if candidate is an ancestor of node (linking it would close a cycle)
func (cmd *GenerateCommand) isAncestor(candidate, node *ItemNode) bool {
	visited := make(map[string]bool)
	return cmd.isAncestorHelper(candidate, node, visited)
}

func (cmd *GenerateCommand) isAncestorHelper(candidate, node *ItemNode, visited map[string]bool) bool {
	if visited[node.ID] {
		return false
	}
	visited[node.ID] = true

	for _, parent := range node.Parents {
		if parent.ID == candidate.ID {
			return true
		}
		if cmd.isAncestorHelper(candidate, parent, visited) {
			return true
		}
	}
	return false
}

func (cmd *GenerateCommand) edgeQuantity(child *ItemNode) decimal.Decimal {
	switch child.BaseUnit {
	case "g", "ml":
		return decimal.NewFromInt(int64(5 + cmd.rand.Intn(200)))
	default:
		return decimal.NewFromInt(int64(1 + cmd.rand.Intn(4)))
	}
}

func (cmd *GenerateCommand) classOf(node *ItemNode) string {
	switch {
	case node.IsRoot:
		return "FinishedGood"
	case len(node.Children) == 0:
		return "RawMaterial"
	default:
		return "SemiFinished"
	}
}

func (cmd *GenerateCommand) generateItems(nodes []*ItemNode, _ []edge) error {
	return cmd.writeFile("items.csv", func(w io.Writer) {
		fmt.Fprintln(w, "id,code,name,class,base_unit,is_producible")
		for _, node := range nodes {
			producible := len(node.Children) > 0
			fmt.Fprintf(w, "%s,%s,%s,%s,%s,%t\n",
				node.ID, strings.ReplaceAll(node.ID, "_", "-"), node.Name, cmd.classOf(node), node.BaseUnit, producible)
		}
	})
}

func (cmd *GenerateCommand) generateMeasurements(nodes []*ItemNode, _ []edge) error {
	return cmd.writeFile("measurements.csv", func(w io.Writer) {
		fmt.Fprintln(w, "id,item_id,unit,factor_to_base")
		for _, node := range nodes {
			if len(node.Children) > 0 && !node.IsRoot {
				continue
			}
			switch node.BaseUnit {
			case "g":
				fmt.Fprintf(w, "%s_KG,%s,kg,1000\n", node.ID, node.ID)
				fmt.Fprintf(w, "%s_BAG,%s,bag,25000\n", node.ID, node.ID)
			case "ml":
				fmt.Fprintf(w, "%s_L,%s,l,1000\n", node.ID, node.ID)
			default:
				fmt.Fprintf(w, "%s_BOX,%s,box,12\n", node.ID, node.ID)
				fmt.Fprintf(w, "%s_PACK,%s,pack,6\n", node.ID, node.ID)
			}
		}
	})
}

func (cmd *GenerateCommand) generateEdges(_ []*ItemNode, edges []edge) error {
	return cmd.writeFile("edges.csv", func(w io.Writer) {
		fmt.Fprintln(w, "id,parent_item_id,component_item_id,quantity,unit_id,optional,active")
		for i, e := range edges {
			optional := !e.parent.IsRoot && cmd.rand.Float64() < 0.1
			fmt.Fprintf(w, "E%05d,%s,%s,%s,,%t,true\n", i+1, e.parent.ID, e.child.ID, e.quantity.String(), optional)
		}
	})
}

// generateRecipes gives every finished good a recipe built from the raw materials below it
func (cmd *GenerateCommand) generateRecipes(nodes []*ItemNode, _ []edge) error {
	categories := []string{"dough", "filling", "topping", "rawMaterial"}

	return cmd.writeFile("recipes.csv", func(w io.Writer) {
		fmt.Fprintln(w, "product,category,ingredient,per_unit_amount,unit")
		for _, root := range nodes {
			if !root.IsRoot {
				continue
			}
			leaves := cmd.leavesOf(root)
			for _, leaf := range leaves {
				category := categories[cmd.rand.Intn(len(categories))]
				if leaf.BaseUnit == "pcs" {
					category = "rawMaterial"
				}
				fmt.Fprintf(w, "%s,%s,%s,%s,%s\n", root.Name, category, leaf.Name, cmd.edgeQuantity(leaf).String(), leaf.BaseUnit)
			}
		}
	})
}

func (cmd *GenerateCommand) leavesOf(root *ItemNode) []*ItemNode {
	seen := make(map[string]bool)
	var leaves []*ItemNode
	var walk func(*ItemNode)
	walk = func(node *ItemNode) {
		if seen[node.ID] {
			return
		}
		seen[node.ID] = true
		if len(node.Children) == 0 && !node.IsRoot {
			leaves = append(leaves, node)
			return
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(root)
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].ID < leaves[j].ID })
	return leaves
}

// generateTargets writes the wide product x location grid; zero targets are left empty
func (cmd *GenerateCommand) generateTargets(nodes []*ItemNode, _ []edge) error {
	locations := make([]string, cmd.config.Locations)
	for i := range locations {
		locations[i] = fmt.Sprintf("Kitchen_%02d", i+1)
	}

	return cmd.writeFile("targets.csv", func(w io.Writer) {
		fmt.Fprintf(w, "product,%s\n", strings.Join(locations, ","))
		for _, node := range nodes {
			if !node.IsRoot {
				continue
			}
			cells := make([]string, len(locations))
			for i := range cells {
				if qty := cmd.rand.Intn(60) - 10; qty > 0 {
					cells[i] = fmt.Sprintf("%d", qty)
				}
			}
			fmt.Fprintf(w, "%s,%s\n", node.Name, strings.Join(cells, ","))
		}
	})
}

func (cmd *GenerateCommand) writeFile(name string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, name))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (cmd *GenerateCommand) printHelp() {
	fmt.Fprint(cmd.out, `foodplan generate - write a synthetic production scenario

USAGE:
    foodplan generate [OPTIONS]

OPTIONS:
    --items <N>         Number of catalog items to generate (required)
    --max-depth <N>     Maximum depth of the composition graph (required)
    --products <N>      Number of finished goods (default: about a tenth of the items)
    --locations <N>     Number of locations in the target grid (default: 3)
    --output <DIR>      Output directory for generated files (required)
    --seed <N>          Random seed for reproducible generation
    --verbose           Enable verbose output

The directory receives items.csv, measurements.csv, edges.csv, recipes.csv and
targets.csv and can be passed to the other commands with --scenario.

EXAMPLES:
    foodplan generate --items 200 --max-depth 4 --output ./scenario --seed 12345
    foodplan plan --scenario ./scenario --format xlsx --output ./report
`)
}
