package adapters

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

func TestDecodeRecipes_KeyedJSON(t *testing.T) {
	payload := `{
		"ProductB": {"dough": [{"ingredient": "Flour", "per_unit_amount": "50", "unit": "g"}]},
		"ProductA": {
			"dough": [{"name": "Flour", "perUnit": 80, "unit": "g"}],
			"filling": [{"name": "Milk", "qty": 0.1, "unit": "l"}],
			"toppings": [{"name": "Sesame", "amount": 2, "unit": "g"}],
			"raw_material": [{"name": "Box", "quantity": 1, "unit": "pcs"}]
		}
	}`

	recipes, err := DecodeRecipes(strings.NewReader(payload), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeRecipes failed: %v", err)
	}
	if len(recipes) != 2 || recipes[0].Product != "ProductA" || recipes[1].Product != "ProductB" {
		t.Fatalf("Expected ProductA and ProductB in order, got %+v", recipes)
	}

	a := recipes[0]
	if len(a.Dough) != 1 || !a.Dough[0].PerUnitAmount.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Unexpected dough: %+v", a.Dough)
	}
	if len(a.Filling) != 1 || !a.Filling[0].PerUnitAmount.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Unexpected filling: %+v", a.Filling)
	}
	if a.Filling[0].UnitCategory != entities.Volume {
		t.Errorf("Expected volume category for l, got %v", a.Filling[0].UnitCategory)
	}
	if len(a.Topping) != 1 || len(a.RawMaterial) != 1 {
		t.Errorf("Expected toppings and raw_material to be normalized, got %+v", a)
	}
	if a.RawMaterial[0].UnitCategory != entities.Count {
		t.Errorf("Expected count category for pcs, got %v", a.RawMaterial[0].UnitCategory)
	}
	if recipes[1].Dough[0].Name != "Flour" {
		t.Errorf("Expected ingredient field to map to name, got %+v", recipes[1].Dough[0])
	}
}

func TestDecodeRecipes_ListJSON(t *testing.T) {
	payload := `[
		{"product": "ProductA", "dough": [{"name": "Flour", "perUnitAmount": 80, "unit": "g"}]},
		{"name": "ProductB", "rawMaterials": [{"name": "Bag", "per_unit": 1, "unit": "pcs", "unitCategory": "count"}]}
	]`

	recipes, err := DecodeRecipes(strings.NewReader(payload), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeRecipes failed: %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("Expected 2 recipes, got %d", len(recipes))
	}
	if recipes[1].Product != "ProductB" || len(recipes[1].RawMaterial) != 1 {
		t.Errorf("Unexpected ProductB recipe: %+v", recipes[1])
	}
}

func TestDecodeRecipes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", "  "},
		{"malformed", `{"ProductA": [`},
		{"missing_amount", `{"ProductA": {"dough": [{"name": "Flour", "unit": "g"}]}}`},
		{"negative_amount", `{"ProductA": {"dough": [{"name": "Flour", "qty": -1, "unit": "g"}]}}`},
		{"text_amount", `{"ProductA": {"dough": [{"name": "Flour", "qty": "lots", "unit": "g"}]}}`},
		{"missing_name", `{"ProductA": {"dough": [{"qty": 1, "unit": "g"}]}}`},
		{"missing_product", `[{"dough": []}]`},
		{"duplicate_product", `[{"product": "A"}, {"product": "A"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRecipes(strings.NewReader(tt.payload), FormatJSON); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestDecodeRecipes_Msgpack(t *testing.T) {
	book := map[string]interface{}{
		"ProductA": map[string]interface{}{
			"dough": []map[string]interface{}{
				{"name": "Flour", "perUnit": 80, "unit": "g"},
				{"name": "Butter", "per_unit": 12.5, "unit": "g"},
			},
		},
	}
	data, err := msgpack.Marshal(book)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}

	recipes, err := DecodeRecipes(bytes.NewReader(data), FormatMsgpack)
	if err != nil {
		t.Fatalf("DecodeRecipes failed: %v", err)
	}
	if len(recipes) != 1 || len(recipes[0].Dough) != 2 {
		t.Fatalf("Unexpected recipes: %+v", recipes)
	}
	if !recipes[0].Dough[1].PerUnitAmount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected 12.5, got %s", recipes[0].Dough[1].PerUnitAmount)
	}

	list := []map[string]interface{}{{"product": "ProductB", "filling": []map[string]interface{}{{"name": "Jam", "qty": "3", "unit": "g"}}}}
	data, err = msgpack.Marshal(list)
	if err != nil {
		t.Fatalf("Failed to marshal list payload: %v", err)
	}
	recipes, err = DecodeRecipes(bytes.NewReader(data), FormatMsgpack)
	if err != nil {
		t.Fatalf("DecodeRecipes list failed: %v", err)
	}
	if len(recipes) != 1 || recipes[0].Product != "ProductB" || len(recipes[0].Filling) != 1 {
		t.Errorf("Unexpected list recipes: %+v", recipes)
	}
}

func TestDecodeCatalog_JSON(t *testing.T) {
	payload := `{
		"items": [
			{"id": "FG1", "sku": "BUN", "name": "Bun", "type": "fg", "baseUnit": "pcs", "producible": true},
			{"id": "RM1", "code": "FLR", "name": "Flour", "class": "RawMaterial", "base_unit": "g"}
		],
		"units": [{"item_id": "RM1", "unit": "kg", "factor": 1000}],
		"bom": [
			{"id": "E1", "parent": "FG1", "component": "RM1", "qty": "0.08", "unit_id": "kg", "is_optional": "no"},
			{"parentItemId": "FG1", "componentItemId": "RM2", "quantityPerParentUnit": 1, "active": false}
		]
	}`

	catalog, err := DecodeCatalog(strings.NewReader(payload), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeCatalog failed: %v", err)
	}

	if len(catalog.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(catalog.Items))
	}
	if catalog.Items[0].Code != "BUN" || catalog.Items[0].Class != entities.FinishedGood || !catalog.Items[0].IsProducible {
		t.Errorf("Unexpected FG1: %+v", catalog.Items[0])
	}
	if catalog.Items[1].BaseUnit != "g" || catalog.Items[1].IsProducible {
		t.Errorf("Unexpected RM1: %+v", catalog.Items[1])
	}

	if len(catalog.Measurements) != 1 || catalog.Measurements[0].ID != "kg" {
		t.Fatalf("Expected measurement id to default to its unit, got %+v", catalog.Measurements)
	}
	if !catalog.Measurements[0].FactorToBase.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected factor 1000, got %s", catalog.Measurements[0].FactorToBase)
	}

	if len(catalog.Edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(catalog.Edges))
	}
	if catalog.Edges[0].UnitID != "kg" || catalog.Edges[0].Optional || !catalog.Edges[0].Active {
		t.Errorf("Unexpected E1: %+v", catalog.Edges[0])
	}
	if catalog.Edges[1].ID == "" {
		t.Error("Expected generated id for edge without one")
	}
	if catalog.Edges[1].Active {
		t.Error("Expected second edge to be inactive")
	}
}

func TestDecodeCatalog_Msgpack(t *testing.T) {
	payload := map[string]interface{}{
		"items":        []map[string]interface{}{{"id": "RM1", "name": "Sugar", "class": "rm", "unit": "g", "is_producible": 0}},
		"measurements": []map[string]interface{}{{"id": "bag", "itemId": "RM1", "unit": "bag", "factorToBase": 500}},
		"edges":        []map[string]interface{}{{"id": "E1", "parent_item_id": "SFG1", "component_item_id": "RM1", "quantity": 30}},
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}

	catalog, err := DecodeCatalog(bytes.NewReader(data), FormatMsgpack)
	if err != nil {
		t.Fatalf("DecodeCatalog failed: %v", err)
	}
	if len(catalog.Items) != 1 || len(catalog.Measurements) != 1 || len(catalog.Edges) != 1 {
		t.Fatalf("Unexpected catalog: %+v", catalog)
	}
	if !catalog.Edges[0].QuantityPerParentUnit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected quantity 30, got %s", catalog.Edges[0].QuantityPerParentUnit)
	}
}

func TestDecodeCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  interface{}
	}{
		{"self_reference", `{"edges": [{"id": "E1", "parent": "A", "component": "A", "qty": 1}]}`, new(*entities.SelfReferenceError)},
		{"zero_factor", `{"measurements": [{"id": "box", "item_id": "A", "unit": "box", "factor": 0}]}`, new(*entities.InvalidMeasurementError)},
		{"bad_class", `{"items": [{"id": "A", "name": "A", "class": "gadget", "unit": "pcs"}]}`, new(*entities.ValidationError)},
		{"bad_flag", `{"edges": [{"id": "E1", "parent": "A", "component": "B", "qty": 1, "optional": "maybe"}]}`, new(*entities.ValidationError)},
		{"missing_qty", `{"edges": [{"id": "E1", "parent": "A", "component": "B"}]}`, new(*entities.ValidationError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCatalog(strings.NewReader(tt.payload), FormatJSON)
			if err == nil {
				t.Fatalf("Expected error for %s", tt.name)
			}
			if !errors.As(err, tt.target) {
				t.Errorf("Expected %T, got %v", tt.target, err)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"recipes.json", FormatJSON, false},
		{"recipes.JSON", FormatJSON, false},
		{"catalog.msgpack", FormatMsgpack, false},
		{"catalog.mpk", FormatMsgpack, false},
		{"catalog.yaml", FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
