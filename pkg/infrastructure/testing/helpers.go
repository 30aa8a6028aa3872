package testing

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/infrastructure/repositories/memory"
)

// BakeryTestData is a small pizza kitchen: catalog, composition graph, recipes and a target grid
type BakeryTestData struct {
	Items   *memory.ItemRepository
	Edges   *memory.CompositionRepository
	Recipes *memory.RecipeRepository
	Targets []entities.ProductionTargetRow
}

func mustCreateItem(id entities.ItemID, name string, class entities.ItemClass, baseUnit string) *entities.Item {
	item, err := entities.NewItem(id, string(id), name, class, baseUnit, class != entities.RawMaterial)
	if err != nil {
		panic(err)
	}
	return item
}

func mustCreateMeasurement(id entities.MeasurementID, itemID entities.ItemID, unit string, factor int64) *entities.MeasurementUnit {
	m, err := entities.NewMeasurementUnit(id, itemID, unit, decimal.NewFromInt(factor))
	if err != nil {
		panic(err)
	}
	return m
}

func mustCreateEdge(id entities.EdgeID, parent, component entities.ItemID, qty string, unitID entities.MeasurementID, optional bool) entities.CompositionEdge {
	edge, err := entities.NewCompositionEdge(id, parent, component, decimal.RequireFromString(qty), unitID, optional)
	if err != nil {
		panic(err)
	}
	return *edge
}

func mustCreateComponent(name, perUnit, unit string) entities.RecipeComponent {
	c, err := entities.NewRecipeComponent(name, decimal.RequireFromString(perUnit), unit, entities.UnitCategoryOf(unit))
	if err != nil {
		panic(err)
	}
	return *c
}

func mustCreateTargetRow(product string, quantities map[string]int64) entities.ProductionTargetRow {
	row, err := entities.NewProductionTargetRow(product, quantities)
	if err != nil {
		panic(err)
	}
	return *row
}

// BuildBakeryTestData builds the pizza kitchen scenario.
//
// One PIZZA_MARGHERITA explodes to 150 g flour, 100 ml water, 100 g tomato,
// 125 g mozzarella and one box; basil is optional.
func BuildBakeryTestData() *BakeryTestData {
	items := []*entities.Item{
		mustCreateItem("PIZZA_MARGHERITA", "Pizza Margherita", entities.FinishedGood, "pcs"),
		mustCreateItem("DOUGH_BALL", "Dough Ball", entities.SemiFinished, "g"),
		mustCreateItem("TOMATO_SAUCE", "Tomato Sauce", entities.SemiFinished, "g"),
		mustCreateItem("FLOUR", "Flour", entities.RawMaterial, "g"),
		mustCreateItem("WATER", "Water", entities.RawMaterial, "ml"),
		mustCreateItem("TOMATO", "Tomato", entities.RawMaterial, "g"),
		mustCreateItem("MOZZARELLA", "Mozzarella", entities.RawMaterial, "g"),
		mustCreateItem("BASIL", "Basil", entities.RawMaterial, "g"),
		mustCreateItem("SALT", "Salt", entities.RawMaterial, "g"),
		mustCreateItem("PIZZA_BOX", "Pizza Box", entities.RawMaterial, "pcs"),
	}

	measurements := []*entities.MeasurementUnit{
		mustCreateMeasurement("FLOUR_KG", "FLOUR", "kg", 1000),
		mustCreateMeasurement("FLOUR_BAG", "FLOUR", "bag", 25000),
		mustCreateMeasurement("WATER_L", "WATER", "l", 1000),
		mustCreateMeasurement("TOMATO_KG", "TOMATO", "kg", 1000),
		mustCreateMeasurement("MOZZARELLA_KG", "MOZZARELLA", "kg", 1000),
		mustCreateMeasurement("PIZZA_BOX_CASE", "PIZZA_BOX", "case", 50),
	}

	edges := []entities.CompositionEdge{
		mustCreateEdge("E_PM_DOUGH", "PIZZA_MARGHERITA", "DOUGH_BALL", "250", "", false),
		mustCreateEdge("E_PM_SAUCE", "PIZZA_MARGHERITA", "TOMATO_SAUCE", "80", "", false),
		mustCreateEdge("E_PM_MOZZ", "PIZZA_MARGHERITA", "MOZZARELLA", "0.125", "MOZZARELLA_KG", false),
		mustCreateEdge("E_PM_BASIL", "PIZZA_MARGHERITA", "BASIL", "2", "", true),
		mustCreateEdge("E_PM_BOX", "PIZZA_MARGHERITA", "PIZZA_BOX", "1", "", false),
		mustCreateEdge("E_DOUGH_FLOUR", "DOUGH_BALL", "FLOUR", "0.6", "", false),
		mustCreateEdge("E_DOUGH_WATER", "DOUGH_BALL", "WATER", "0.4", "", false),
		mustCreateEdge("E_SAUCE_TOMATO", "TOMATO_SAUCE", "TOMATO", "1.25", "", false),
	}

	pizza := entities.ProductRecipe{Product: "Pizza Margherita"}
	pizza.Add(entities.Dough, mustCreateComponent("Flour", "150", "g"))
	pizza.Add(entities.Dough, mustCreateComponent("Water", "100", "ml"))
	pizza.Add(entities.Topping, mustCreateComponent("Mozzarella", "125", "g"))
	pizza.Add(entities.Topping, mustCreateComponent("Tomato", "100", "g"))
	pizza.Add(entities.RawMaterialCategory, mustCreateComponent("Pizza Box", "1", "pcs"))

	focaccia := entities.ProductRecipe{Product: "Focaccia"}
	focaccia.Add(entities.Dough, mustCreateComponent("Flour", "200", "g"))
	focaccia.Add(entities.Dough, mustCreateComponent("Water", "120", "ml"))
	focaccia.Add(entities.Topping, mustCreateComponent("Olive Oil", "10", "ml"))

	itemRepo := memory.NewItemRepository(len(items))
	if err := itemRepo.LoadItems(items); err != nil {
		panic(err)
	}
	if err := itemRepo.LoadMeasurements(measurements); err != nil {
		panic(err)
	}

	edgeRepo := memory.NewCompositionRepository(len(edges))
	if err := edgeRepo.LoadEdges(edges); err != nil {
		panic(err)
	}

	recipeRepo := memory.NewRecipeRepository()
	if err := recipeRepo.LoadRecipes([]entities.ProductRecipe{pizza, focaccia}); err != nil {
		panic(err)
	}

	return &BakeryTestData{
		Items:   itemRepo,
		Edges:   edgeRepo,
		Recipes: recipeRepo,
		Targets: []entities.ProductionTargetRow{
			mustCreateTargetRow("Pizza Margherita", map[string]int64{"Kitchen_A": 10, "Kitchen_B": 6}),
			mustCreateTargetRow("Focaccia", map[string]int64{"Kitchen_A": 4}),
			mustCreateTargetRow("Calzone", map[string]int64{"Kitchen_B": 2}),
		},
	}
}
