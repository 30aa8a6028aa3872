package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/foodplan/pkg/application/dto"
	"github.com/vsinha/foodplan/pkg/domain/entities"
)

const (
	itemsCSV = `id,code,name,class,base_unit,is_producible
FG1,FG-1,Pizza,FinishedGood,pcs,true
SFG1,SFG-1,Dough Ball,SemiFinished,g,true
RM1,RM-1,Flour,RawMaterial,g,false
RM2,RM-2,Box,RawMaterial,pcs,false
`
	measurementsCSV = `id,item_id,unit,factor_to_base
RM1_KG,RM1,kg,1000
RM2_BOX,RM2,box,12
`
	edgesCSV = `id,parent_item_id,component_item_id,quantity,unit_id,optional,active
E1,FG1,SFG1,250,,false,true
E2,SFG1,RM1,0.6,,false,true
E3,FG1,RM2,1,,false,true
`
	recipesJSON = `{
  "Pizza": {
    "dough": [{"name": "Flour", "perUnit": 150, "unit": "g"}],
    "rawMaterial": [{"name": "Box", "qty": 1, "unit": "pcs"}]
  }
}`
	targetsCSV = `product,LocX,LocY
Pizza,10,4
Calzone,,3
`
)

func writeScenario(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	defaults := map[string]string{
		"items.csv":        itemsCSV,
		"measurements.csv": measurementsCSV,
		"edges.csv":        edgesCSV,
		"recipes.json":     recipesJSON,
		"targets.csv":      targetsCSV,
	}
	for name, content := range files {
		defaults[name] = content
	}
	for name, content := range defaults {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestPlanCommand_Scenario(t *testing.T) {
	dir := writeScenario(t, nil)
	var out bytes.Buffer

	err := NewPlanCommand(PlanConfig{
		ScenarioDir: dir,
		Format:      "json",
		Logger:      zaptest.NewLogger(t),
		Out:         &out,
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var report dto.MaterialsReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v\n%s", err, out.String())
	}

	if report.GrandTotal != 17 {
		t.Errorf("Expected grand total 17, got %d", report.GrandTotal)
	}
	if len(report.Materials) != 2 {
		t.Fatalf("Expected 2 materials, got %+v", report.Materials)
	}
	if report.Materials[0].Name != "Flour" || !report.Materials[0].Quantity.Equal(decimal.NewFromInt(2100)) {
		t.Errorf("Expected 2100 g Flour, got %+v", report.Materials[0])
	}
	if report.Materials[1].Name != "Box" || !report.Materials[1].Quantity.Equal(decimal.NewFromInt(14)) {
		t.Errorf("Expected 14 pcs Box, got %+v", report.Materials[1])
	}
	if len(report.MissingProducts) != 1 || report.MissingProducts[0] != "Calzone" {
		t.Errorf("Expected Calzone without recipe, got %v", report.MissingProducts)
	}
}

func TestPlanCommand_VerboseReportsEvents(t *testing.T) {
	dir := writeScenario(t, nil)
	var out bytes.Buffer

	err := NewPlanCommand(PlanConfig{
		ScenarioDir: dir,
		Format:      "text",
		Verbose:     true,
		Logger:      zaptest.NewLogger(t),
		Out:         &out,
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"No recipe for Calzone",
		"processed: 17 units, 2 materials",
		"Planning complete (",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected verbose plan output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestPlanCommand_FailOnMissingRecipe(t *testing.T) {
	dir := writeScenario(t, nil)

	err := NewPlanCommand(PlanConfig{
		ScenarioDir:         dir,
		FailOnMissingRecipe: true,
		Out:                 &bytes.Buffer{},
	}).Execute(context.Background())

	var missing *entities.MissingRecipeError
	if !errors.As(err, &missing) || missing.Product != "Calzone" {
		t.Fatalf("Expected MissingRecipeError for Calzone, got %v", err)
	}
}

func TestPlanCommand_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		config PlanConfig
	}{
		{"no_inputs", PlanConfig{}},
		{"missing_targets", PlanConfig{TargetsFile: "does-not-exist.csv", RecipesFile: "recipes.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Out = &bytes.Buffer{}
			if err := NewPlanCommand(tt.config).Execute(context.Background()); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestBOMCommand_ValidateAndExplode(t *testing.T) {
	dir := writeScenario(t, nil)
	var out bytes.Buffer

	err := NewBOMCommand(BOMConfig{
		Action:  BOMValidate,
		Catalog: CatalogFiles{ScenarioDir: dir},
		Out:     &out,
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "valid") {
		t.Errorf("Expected validation message, got:\n%s", out.String())
	}

	out.Reset()
	err = NewBOMCommand(BOMConfig{
		Action:   BOMExplode,
		Catalog:  CatalogFiles{ScenarioDir: dir},
		Item:     "FG1",
		Quantity: "10",
		Out:      &out,
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	for _, want := range []string{"RM1", "1500", "1 kg 500 g", "RM2", "10 pcs"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected explosion to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestBOMCommand_ValidateCycle(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"edges.csv": edgesCSV + "E4,RM1,FG1,1,,false,true\n",
	})
	var out bytes.Buffer

	err := NewBOMCommand(BOMConfig{
		Action:  BOMValidate,
		Catalog: CatalogFiles{ScenarioDir: dir},
		Out:     &out,
	}).Execute(context.Background())
	if err == nil {
		t.Fatal("Expected validation to fail for cyclic edges")
	}
	if !strings.Contains(out.String(), "cycle") {
		t.Errorf("Expected cycle to be reported, got:\n%s", out.String())
	}
}

func TestBOMCommand_PersistedEdits(t *testing.T) {
	dir := writeScenario(t, nil)
	db := filepath.Join(t.TempDir(), "foodplan.db")
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	run := func(config BOMConfig) (string, error) {
		var out bytes.Buffer
		config.Catalog = CatalogFiles{ScenarioDir: dir}
		config.DBPath = db
		config.Logger = logger
		config.Out = &out
		err := NewBOMCommand(config).Execute(ctx)
		return out.String(), err
	}

	if out, err := run(BOMConfig{Action: BOMImport}); err != nil {
		t.Fatalf("Import failed: %v\n%s", err, out)
	}

	_, err := run(BOMConfig{Action: BOMAdd, Parent: "RM1", Component: "FG1", Quantity: "1"})
	var cycleErr *entities.CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleDetectedError, got %v", err)
	}

	out, err := run(BOMConfig{Action: BOMAdd, Parent: "FG1", Component: "RM1", Quantity: "0.5", Unit: "RM1_KG"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !strings.Contains(out, "FG1 -> RM1") {
		t.Errorf("Expected saved edge in output, got:\n%s", out)
	}

	if _, err := run(BOMConfig{Action: BOMRemove, EdgeID: "E3"}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	out, err = run(BOMConfig{Action: BOMExplode, Item: "FG1", Quantity: "2"})
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	// 2 x 250 g dough x 0.6 plus 2 x 0.5 kg flour
	if !strings.Contains(out, "1300") || strings.Contains(out, "RM2") {
		t.Errorf("Expected 1300 g flour and no boxes, got:\n%s", out)
	}
}

func TestBOMCommand_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		config BOMConfig
	}{
		{"unknown_action", BOMConfig{Action: "draw"}},
		{"add_without_db", BOMConfig{Action: BOMAdd, Parent: "FG1", Component: "RM1", Quantity: "1"}},
		{"add_without_quantity", BOMConfig{Action: BOMAdd, DBPath: "x.db", Parent: "FG1", Component: "RM1"}},
		{"explode_without_item", BOMConfig{Action: BOMExplode, Quantity: "1"}},
		{"remove_without_edge", BOMConfig{Action: BOMRemove, DBPath: "x.db"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Out = &bytes.Buffer{}
			if err := NewBOMCommand(tt.config).Execute(context.Background()); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestConvertCommand(t *testing.T) {
	dir := writeScenario(t, nil)

	tests := []struct {
		name   string
		config ConvertConfig
		want   string
	}{
		{"decompose", ConvertConfig{Item: "RM1", Quantity: "2500"}, "= 2 kg 500 g"},
		{"decompose_below_largest_unit", ConvertConfig{Item: "RM2", Quantity: "7"}, "= 7 pcs"},
		{"compose", ConvertConfig{Item: "RM2", Entries: "RM2_BOX=2", Quantity: "5"}, "29 pcs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tt.config.Catalog = CatalogFiles{ScenarioDir: dir}
			tt.config.Out = &out
			if err := NewConvertCommand(tt.config).Execute(context.Background()); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.want, out.String())
			}
		})
	}

	err := NewConvertCommand(ConvertConfig{
		Catalog: CatalogFiles{ScenarioDir: dir},
		Item:    "RM2",
		Entries: "RM1_KG=1",
		Out:     &bytes.Buffer{},
	}).Execute(context.Background())
	var measurementErr *entities.InvalidMeasurementError
	if !errors.As(err, &measurementErr) {
		t.Errorf("Expected InvalidMeasurementError for a foreign measurement, got %v", err)
	}
}

func TestStockCommand(t *testing.T) {
	dir := writeScenario(t, nil)
	db := filepath.Join(t.TempDir(), "stock.db")
	ctx := context.Background()

	run := func(config StockConfig) (string, error) {
		var out bytes.Buffer
		config.Catalog = CatalogFiles{ScenarioDir: dir}
		config.DBPath = db
		config.Item = "RM2"
		config.Logger = zaptest.NewLogger(t)
		config.Out = &out
		err := NewStockCommand(config).Execute(ctx)
		return out.String(), err
	}

	out, err := run(StockConfig{Action: StockMove, Location: "LocX", Type: "IN", Entries: "RM2_BOX=2", Quantity: "5", Note: "delivery"})
	if err != nil {
		t.Fatalf("Move IN failed: %v", err)
	}
	if !strings.Contains(out, "2 box 5 pcs") {
		t.Errorf("Expected display breakdown, got:\n%s", out)
	}

	_, err = run(StockConfig{Action: StockMove, Location: "LocX", Type: "OUT", Quantity: "30"})
	var stockErr *entities.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}

	out, err = run(StockConfig{Action: StockTransfer, Location: "LocX", To: "LocY", Entries: "RM2_BOX=1"})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if !strings.Contains(out, "TRANSFER_OUT") || !strings.Contains(out, "TRANSFER_IN") {
		t.Errorf("Expected both transfer legs, got:\n%s", out)
	}

	out, err = run(StockConfig{Action: StockBalance, Location: "LocY"})
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !strings.Contains(out, "1 box") {
		t.Errorf("Expected 1 box at LocY, got:\n%s", out)
	}

	out, err = run(StockConfig{Action: StockHistory, Location: "LocX"})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if strings.Count(out, "\n") != 5 || !strings.Contains(out, "delivery") {
		t.Errorf("Expected header plus two movements, got:\n%s", out)
	}
}

func TestStockCommand_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		config StockConfig
	}{
		{"unknown_action", StockConfig{Action: "count", DBPath: "x.db", Item: "RM1", Location: "LocX"}},
		{"without_db", StockConfig{Action: StockBalance, Item: "RM1", Location: "LocX"}},
		{"move_without_type", StockConfig{Action: StockMove, DBPath: "x.db", Item: "RM1", Location: "LocX", Quantity: "1"}},
		{"move_without_amount", StockConfig{Action: StockMove, DBPath: "x.db", Item: "RM1", Location: "LocX", Type: "IN"}},
		{"transfer_without_destination", StockConfig{Action: StockTransfer, DBPath: "x.db", Item: "RM1", Location: "LocX", Quantity: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Out = &bytes.Buffer{}
			if err := NewStockCommand(tt.config).Execute(context.Background()); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestGenerateCommand_ScenarioIsUsable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenario")
	ctx := context.Background()

	err := NewGenerateCommand(GenerateConfig{
		Items:     60,
		MaxDepth:  3,
		Locations: 2,
		OutputDir: dir,
		Seed:      42,
		Out:       &bytes.Buffer{},
	}).Execute(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, name := range []string{"items.csv", "measurements.csv", "edges.csv", "recipes.csv", "targets.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to be generated: %v", name, err)
		}
	}

	var out bytes.Buffer
	if err := NewBOMCommand(BOMConfig{Action: BOMValidate, Catalog: CatalogFiles{ScenarioDir: dir}, Out: &out}).Execute(ctx); err != nil {
		t.Fatalf("Generated graph failed validation: %v\n%s", err, out.String())
	}

	out.Reset()
	if err := NewPlanCommand(PlanConfig{ScenarioDir: dir, Format: "csv", Out: &out}).Execute(ctx); err != nil {
		t.Fatalf("Planning the generated scenario failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "category,ingredient,quantity,unit\n") {
		t.Errorf("Unexpected materials CSV:\n%s", out.String())
	}
}

func TestGenerateCommand_Reproducible(t *testing.T) {
	read := func(dir string) string {
		data, err := os.ReadFile(filepath.Join(dir, "edges.csv"))
		if err != nil {
			t.Fatalf("Failed to read edges: %v", err)
		}
		return string(data)
	}

	var outputs []string
	for i := 0; i < 2; i++ {
		dir := t.TempDir()
		config := GenerateConfig{Items: 30, MaxDepth: 4, OutputDir: dir, Seed: 7, Out: &bytes.Buffer{}}
		if err := NewGenerateCommand(config).Execute(context.Background()); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		outputs = append(outputs, read(dir))
	}
	if outputs[0] != outputs[1] {
		t.Error("Expected the same seed to produce the same edges")
	}
}

func TestSessionCommand(t *testing.T) {
	dir := writeScenario(t, nil)
	input := strings.Join([]string{
		"add FG1 RM1 5",
		"add RM1 FG1 1",
		"update E3 FG1 RM2 2",
		"explode FG1 1",
		"status",
		"bogus",
		"quit",
		"edges",
	}, "\n")
	var out bytes.Buffer

	err := NewSessionCommand(SessionConfig{
		Catalog: CatalogFiles{ScenarioDir: dir},
		Logger:  zaptest.NewLogger(t),
		In:      strings.NewReader(input),
		Out:     &out,
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Added edge",
		"cycle",
		"Updated edge E3",
		"Active edges: 4",
		"composition.edge.created: 1",
		"composition.edge.updated: 1",
		"unknown command: bogus",
		"created: FG1 -> RM1",
		"📣 edge E3 updated: FG1 -> RM2 x 2",
		"Goodbye!",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected session output to contain %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "=== Active Edges") {
		t.Error("Expected commands after quit to be ignored")
	}
}

func TestParseEntries(t *testing.T) {
	entries, err := parseEntries(" box=2, pack = 1 ")
	if err != nil {
		t.Fatalf("parseEntries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].MeasurementID != "box" || entries[1].Count != 1 {
		t.Errorf("Unexpected entries: %+v", entries)
	}

	for _, bad := range []string{"box", "=2", "box=two"} {
		if _, err := parseEntries(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
