package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// Format is the wire encoding of an incoming payload
type Format int

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// String method for Format enum
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// FormatFromPath picks the payload format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk", ".mp":
		return FormatMsgpack, nil
	default:
		return FormatJSON, fmt.Errorf("unsupported payload extension for %s", path)
	}
}

// componentPayload accepts the field spellings seen in recipe exports
type componentPayload struct {
	Name          string      `json:"name" msgpack:"name"`
	Ingredient    string      `json:"ingredient" msgpack:"ingredient"`
	PerUnit       interface{} `json:"perUnit" msgpack:"perUnit"`
	PerUnitSnake  interface{} `json:"per_unit" msgpack:"per_unit"`
	PerUnitAmount interface{} `json:"perUnitAmount" msgpack:"perUnitAmount"`
	PerUnitLong   interface{} `json:"per_unit_amount" msgpack:"per_unit_amount"`
	Qty           interface{} `json:"qty" msgpack:"qty"`
	Quantity      interface{} `json:"quantity" msgpack:"quantity"`
	Amount        interface{} `json:"amount" msgpack:"amount"`
	Unit          string      `json:"unit" msgpack:"unit"`
	UnitCategory  string      `json:"unitCategory" msgpack:"unitCategory"`
}

type recipePayload struct {
	Product      string             `json:"product" msgpack:"product"`
	Name         string             `json:"name" msgpack:"name"`
	Dough        []componentPayload `json:"dough" msgpack:"dough"`
	Filling      []componentPayload `json:"filling" msgpack:"filling"`
	Topping      []componentPayload `json:"topping" msgpack:"topping"`
	Toppings     []componentPayload `json:"toppings" msgpack:"toppings"`
	RawMaterial  []componentPayload `json:"rawMaterial" msgpack:"rawMaterial"`
	RawMaterials []componentPayload `json:"rawMaterials" msgpack:"rawMaterials"`
	RawSnake     []componentPayload `json:"raw_material" msgpack:"raw_material"`
	RawSnakes    []componentPayload `json:"raw_materials" msgpack:"raw_materials"`
}

// DecodeRecipes normalizes a recipe book payload. The top level is either an
// object keyed by product name or an array of recipes carrying a product field.
func DecodeRecipes(r io.Reader, format Format) ([]entities.ProductRecipe, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe payload: %w", err)
	}

	keyed, list, err := decodeRecipeShapes(data, format)
	if err != nil {
		return nil, err
	}

	var recipes []entities.ProductRecipe
	if keyed != nil {
		products := make([]string, 0, len(keyed))
		for product := range keyed {
			products = append(products, product)
		}
		sort.Strings(products)
		for _, product := range products {
			recipe, err := normalizeRecipe(product, keyed[product])
			if err != nil {
				return nil, err
			}
			recipes = append(recipes, recipe)
		}
		return recipes, nil
	}

	seen := make(map[string]bool, len(list))
	for i, payload := range list {
		product := firstNonEmpty(payload.Product, payload.Name)
		if product == "" {
			return nil, fmt.Errorf("recipe %d: product cannot be empty", i)
		}
		if seen[product] {
			return nil, fmt.Errorf("recipe %d: duplicate product %s", i, product)
		}
		seen[product] = true
		recipe, err := normalizeRecipe(product, payload)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func decodeRecipeShapes(data []byte, format Format) (map[string]recipePayload, []recipePayload, error) {
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return nil, nil, fmt.Errorf("recipe payload is empty")
		}
		if trimmed[0] == '[' {
			var list []recipePayload
			if err := decodeJSON(trimmed, &list); err != nil {
				return nil, nil, fmt.Errorf("failed to decode recipe list: %w", err)
			}
			return nil, list, nil
		}
		keyed := make(map[string]recipePayload)
		if err := decodeJSON(trimmed, &keyed); err != nil {
			return nil, nil, fmt.Errorf("failed to decode recipe book: %w", err)
		}
		return keyed, nil, nil
	case FormatMsgpack:
		keyed := make(map[string]recipePayload)
		if err := msgpack.Unmarshal(data, &keyed); err == nil {
			return keyed, nil, nil
		}
		var list []recipePayload
		if err := msgpack.Unmarshal(data, &list); err != nil {
			return nil, nil, fmt.Errorf("failed to decode msgpack recipe payload: %w", err)
		}
		return nil, list, nil
	default:
		return nil, nil, fmt.Errorf("unsupported payload format %s", format)
	}
}

func normalizeRecipe(product string, payload recipePayload) (entities.ProductRecipe, error) {
	recipe := entities.ProductRecipe{Product: product}
	sections := []struct {
		category   entities.RecipeCategory
		components [][]componentPayload
	}{
		{entities.Dough, [][]componentPayload{payload.Dough}},
		{entities.Filling, [][]componentPayload{payload.Filling}},
		{entities.Topping, [][]componentPayload{payload.Topping, payload.Toppings}},
		{entities.RawMaterialCategory, [][]componentPayload{payload.RawMaterial, payload.RawMaterials, payload.RawSnake, payload.RawSnakes}},
	}

	for _, section := range sections {
		for _, list := range section.components {
			for i, raw := range list {
				component, err := normalizeComponent(raw)
				if err != nil {
					return entities.ProductRecipe{}, fmt.Errorf("recipe %s %s[%d]: %w", product, section.category, i, err)
				}
				recipe.Add(section.category, component)
			}
		}
	}
	return recipe, nil
}

func normalizeComponent(raw componentPayload) (entities.RecipeComponent, error) {
	amountValue := firstPresent(raw.PerUnit, raw.PerUnitSnake, raw.PerUnitAmount, raw.PerUnitLong, raw.Qty, raw.Quantity, raw.Amount)
	if amountValue == nil {
		return entities.RecipeComponent{}, &entities.ValidationError{Field: "per unit amount", Reason: "missing"}
	}
	amount, err := toDecimal(amountValue)
	if err != nil {
		return entities.RecipeComponent{}, err
	}

	category := entities.UnitCategoryOf(raw.Unit)
	switch strings.ToLower(raw.UnitCategory) {
	case "mass", "weight":
		category = entities.Mass
	case "volume":
		category = entities.Volume
	case "count", "piece", "pieces":
		category = entities.Count
	}

	component, err := entities.NewRecipeComponent(firstNonEmpty(raw.Name, raw.Ingredient), amount, strings.TrimSpace(raw.Unit), category)
	if err != nil {
		return entities.RecipeComponent{}, err
	}
	return *component, nil
}

type itemPayload struct {
	ID              string      `json:"id" msgpack:"id"`
	Code            string      `json:"code" msgpack:"code"`
	SKU             string      `json:"sku" msgpack:"sku"`
	Name            string      `json:"name" msgpack:"name"`
	Class           string      `json:"class" msgpack:"class"`
	Type            string      `json:"type" msgpack:"type"`
	BaseUnit        string      `json:"baseUnit" msgpack:"baseUnit"`
	BaseUnitSnake   string      `json:"base_unit" msgpack:"base_unit"`
	Unit            string      `json:"unit" msgpack:"unit"`
	IsProducible    interface{} `json:"isProducible" msgpack:"isProducible"`
	IsProducibleSnk interface{} `json:"is_producible" msgpack:"is_producible"`
	Producible      interface{} `json:"producible" msgpack:"producible"`
}

type measurementPayload struct {
	ID           string      `json:"id" msgpack:"id"`
	ItemID       string      `json:"itemId" msgpack:"itemId"`
	ItemIDSnake  string      `json:"item_id" msgpack:"item_id"`
	Unit         string      `json:"unit" msgpack:"unit"`
	Name         string      `json:"name" msgpack:"name"`
	FactorToBase interface{} `json:"factorToBase" msgpack:"factorToBase"`
	FactorSnake  interface{} `json:"factor_to_base" msgpack:"factor_to_base"`
	Factor       interface{} `json:"factor" msgpack:"factor"`
}

type edgePayload struct {
	ID             string      `json:"id" msgpack:"id"`
	ParentItemID   string      `json:"parentItemId" msgpack:"parentItemId"`
	ParentSnake    string      `json:"parent_item_id" msgpack:"parent_item_id"`
	Parent         string      `json:"parent" msgpack:"parent"`
	ComponentID    string      `json:"componentItemId" msgpack:"componentItemId"`
	ComponentSnake string      `json:"component_item_id" msgpack:"component_item_id"`
	Component      string      `json:"component" msgpack:"component"`
	Quantity       interface{} `json:"quantity" msgpack:"quantity"`
	Qty            interface{} `json:"qty" msgpack:"qty"`
	PerParent      interface{} `json:"quantityPerParentUnit" msgpack:"quantityPerParentUnit"`
	PerParentSnake interface{} `json:"quantity_per_parent_unit" msgpack:"quantity_per_parent_unit"`
	UnitID         string      `json:"unitId" msgpack:"unitId"`
	UnitIDSnake    string      `json:"unit_id" msgpack:"unit_id"`
	Optional       interface{} `json:"optional" msgpack:"optional"`
	IsOptional     interface{} `json:"is_optional" msgpack:"is_optional"`
	Active         interface{} `json:"active" msgpack:"active"`
	IsActive       interface{} `json:"is_active" msgpack:"is_active"`
}

type catalogPayload struct {
	Items        []itemPayload        `json:"items" msgpack:"items"`
	Measurements []measurementPayload `json:"measurements" msgpack:"measurements"`
	Units        []measurementPayload `json:"units" msgpack:"units"`
	Edges        []edgePayload        `json:"edges" msgpack:"edges"`
	BOM          []edgePayload        `json:"bom" msgpack:"bom"`
}

// Catalog is the strict form of a catalog payload
type Catalog struct {
	Items        []*entities.Item
	Measurements []*entities.MeasurementUnit
	Edges        []entities.CompositionEdge
}

// DecodeCatalog normalizes a catalog payload of items, measurements and
// composition edges. Edges without an id get a generated one.
func DecodeCatalog(r io.Reader, format Format) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog payload: %w", err)
	}

	var payload catalogPayload
	switch format {
	case FormatJSON:
		err = decodeJSON(data, &payload)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &payload)
	default:
		err = fmt.Errorf("unsupported payload format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog payload: %w", err)
	}

	catalog := &Catalog{}
	for i, raw := range payload.Items {
		item, err := normalizeItem(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		catalog.Items = append(catalog.Items, item)
	}

	for i, raw := range append(payload.Measurements, payload.Units...) {
		m, err := normalizeMeasurement(raw)
		if err != nil {
			return nil, fmt.Errorf("measurement %d: %w", i, err)
		}
		catalog.Measurements = append(catalog.Measurements, m)
	}

	for i, raw := range append(payload.Edges, payload.BOM...) {
		edge, err := normalizeEdge(raw)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		catalog.Edges = append(catalog.Edges, edge)
	}

	return catalog, nil
}

func normalizeItem(raw itemPayload) (*entities.Item, error) {
	class, err := entities.ParseItemClass(firstNonEmpty(raw.Class, raw.Type))
	if err != nil {
		return nil, err
	}

	producible := false
	if v := firstPresent(raw.IsProducible, raw.IsProducibleSnk, raw.Producible); v != nil {
		if producible, err = toBool(v); err != nil {
			return nil, err
		}
	}

	return entities.NewItem(
		entities.ItemID(raw.ID),
		firstNonEmpty(raw.Code, raw.SKU),
		raw.Name,
		class,
		firstNonEmpty(raw.BaseUnit, raw.BaseUnitSnake, raw.Unit),
		producible,
	)
}

func normalizeMeasurement(raw measurementPayload) (*entities.MeasurementUnit, error) {
	factorValue := firstPresent(raw.FactorToBase, raw.FactorSnake, raw.Factor)
	if factorValue == nil {
		return nil, &entities.ValidationError{Field: "factor to base", Value: raw.ID, Reason: "missing"}
	}
	factor, err := toDecimal(factorValue)
	if err != nil {
		return nil, err
	}

	unit := firstNonEmpty(raw.Unit, raw.Name)
	id := firstNonEmpty(raw.ID, unit)
	return entities.NewMeasurementUnit(
		entities.MeasurementID(id),
		entities.ItemID(firstNonEmpty(raw.ItemID, raw.ItemIDSnake)),
		unit,
		factor,
	)
}

func normalizeEdge(raw edgePayload) (entities.CompositionEdge, error) {
	qtyValue := firstPresent(raw.Quantity, raw.Qty, raw.PerParent, raw.PerParentSnake)
	if qtyValue == nil {
		return entities.CompositionEdge{}, &entities.ValidationError{Field: "quantity per parent unit", Value: raw.ID, Reason: "missing"}
	}
	qty, err := toDecimal(qtyValue)
	if err != nil {
		return entities.CompositionEdge{}, err
	}

	optional := false
	if v := firstPresent(raw.Optional, raw.IsOptional); v != nil {
		if optional, err = toBool(v); err != nil {
			return entities.CompositionEdge{}, err
		}
	}

	active := true
	if v := firstPresent(raw.Active, raw.IsActive); v != nil {
		if active, err = toBool(v); err != nil {
			return entities.CompositionEdge{}, err
		}
	}

	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	edge, err := entities.NewCompositionEdge(
		entities.EdgeID(id),
		entities.ItemID(firstNonEmpty(raw.ParentItemID, raw.ParentSnake, raw.Parent)),
		entities.ItemID(firstNonEmpty(raw.ComponentID, raw.ComponentSnake, raw.Component)),
		qty,
		entities.MeasurementID(firstNonEmpty(raw.UnitID, raw.UnitIDSnake)),
		optional,
	)
	if err != nil {
		return entities.CompositionEdge{}, err
	}
	edge.Active = active
	return *edge, nil
}

func decodeJSON(data []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}

// toDecimal accepts the number representations produced by the json and msgpack decoders
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int8:
		return decimal.NewFromInt(int64(n)), nil
	case int16:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint8:
		return decimal.NewFromInt(int64(n)), nil
	case uint16:
		return decimal.NewFromInt(int64(n)), nil
	case uint32:
		return decimal.NewFromInt(int64(n)), nil
	case uint64:
		return decimal.NewFromString(strconv.FormatUint(n, 10))
	default:
		return decimal.Zero, &entities.ValidationError{Field: "number", Value: fmt.Sprint(v), Reason: "not a number"}
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &entities.ValidationError{Field: "number", Value: s, Reason: "not a number"}
	}
	return d, nil
}

func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0", "":
			return false, nil
		}
	default:
		if d, err := toDecimal(v); err == nil {
			return !d.IsZero(), nil
		}
	}
	return false, &entities.ValidationError{Field: "flag", Value: fmt.Sprint(v), Reason: "not a boolean"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstPresent(values ...interface{}) interface{} {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
