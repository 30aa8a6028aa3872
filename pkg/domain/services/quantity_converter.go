package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// BreakdownEntry is the count of one measurement in a decomposition
type BreakdownEntry struct {
	MeasurementID entities.MeasurementID
	Unit          string
	Count         int64
	Factor        decimal.Decimal
}

// Decomposition is a base-unit quantity split into display units.
// Sum(Count*Factor) + Remainder equals the decomposed total.
type Decomposition struct {
	Remainder decimal.Decimal
	Breakdown []BreakdownEntry
}

var maxCount = decimal.NewFromInt(math.MaxInt64)

// Decompose greedily splits total base units into the given measurements,
// taking as many of the largest unit as fit before moving to the next one.
// The result is not guaranteed to use the fewest units for non-canonical factor sets.
func Decompose(total decimal.Decimal, measurements []entities.MeasurementUnit) (Decomposition, error) {
	if total.IsNegative() {
		return Decomposition{}, &entities.ValidationError{Field: "quantity", Value: total.String(), Reason: "cannot be negative"}
	}

	sorted := make([]entities.MeasurementUnit, len(measurements))
	copy(sorted, measurements)
	for _, m := range sorted {
		if !m.FactorToBase.IsPositive() {
			return Decomposition{}, &entities.InvalidMeasurementError{
				MeasurementID: m.ID,
				ItemID:        m.ItemID,
				Reason:        fmt.Sprintf("factor to base must be positive, got %s", m.FactorToBase.String()),
			}
		}
	}
	sortByFactorDesc(sorted)

	result := Decomposition{
		Remainder: total,
		Breakdown: make([]BreakdownEntry, 0, len(sorted)),
	}

	remaining := total
	for _, m := range sorted {
		// QuoRem with precision 0 yields the integer quotient and an exact remainder
		count, rest := remaining.QuoRem(m.FactorToBase, 0)
		if count.GreaterThan(maxCount) {
			return Decomposition{}, &entities.ValidationError{
				Field:  "quantity",
				Value:  total.String(),
				Reason: fmt.Sprintf("more than %d %s", math.MaxInt64, m.Unit),
			}
		}
		result.Breakdown = append(result.Breakdown, BreakdownEntry{
			MeasurementID: m.ID,
			Unit:          m.Unit,
			Count:         count.IntPart(),
			Factor:        m.FactorToBase,
		})
		remaining = rest
	}
	result.Remainder = remaining

	return result, nil
}

// Compose converts measurement entries back into base units and adds extraBaseUnits
func Compose(entries []entities.MeasurementEntry, extraBaseUnits decimal.Decimal, lookup func(entities.MeasurementID) (entities.MeasurementUnit, bool)) (decimal.Decimal, error) {
	if extraBaseUnits.IsNegative() {
		return decimal.Zero, &entities.ValidationError{Field: "plain quantity", Value: extraBaseUnits.String(), Reason: "cannot be negative"}
	}

	total := extraBaseUnits
	for _, entry := range entries {
		m, ok := lookup(entry.MeasurementID)
		if !ok {
			return decimal.Zero, &entities.InvalidMeasurementError{MeasurementID: entry.MeasurementID, Reason: "unknown measurement"}
		}
		if entry.Count < 0 {
			return decimal.Zero, &entities.InvalidMeasurementError{
				MeasurementID: entry.MeasurementID,
				ItemID:        m.ItemID,
				Reason:        fmt.Sprintf("count cannot be negative, got %d", entry.Count),
			}
		}
		if !m.FactorToBase.IsPositive() {
			return decimal.Zero, &entities.InvalidMeasurementError{
				MeasurementID: m.ID,
				ItemID:        m.ItemID,
				Reason:        fmt.Sprintf("factor to base must be positive, got %s", m.FactorToBase.String()),
			}
		}
		total = total.Add(decimal.NewFromInt(entry.Count).Mul(m.FactorToBase))
	}

	return total, nil
}

// QuantityConverter resolves an item's measurements through the registry
type QuantityConverter struct {
	registry *MeasurementRegistry
}

// NewQuantityConverter creates a converter over a registry
func NewQuantityConverter(registry *MeasurementRegistry) *QuantityConverter {
	return &QuantityConverter{registry: registry}
}

// Registry returns the underlying measurement registry
func (c *QuantityConverter) Registry() *MeasurementRegistry {
	return c.registry
}

// Decompose splits an item's base-unit quantity into its display units
func (c *QuantityConverter) Decompose(itemID entities.ItemID, total decimal.Decimal) (Decomposition, error) {
	return Decompose(total, c.registry.ForItem(itemID))
}

// Compose converts an item's measurement entries plus a plain base-unit quantity into base units.
// Entries must belong to the item.
func (c *QuantityConverter) Compose(itemID entities.ItemID, entries []entities.MeasurementEntry, plain decimal.Decimal) (decimal.Decimal, error) {
	return Compose(entries, plain, func(id entities.MeasurementID) (entities.MeasurementUnit, bool) {
		m, ok := c.registry.Lookup(id)
		if !ok || m.ItemID != itemID {
			return entities.MeasurementUnit{}, false
		}
		return m, true
	})
}

// ToBase converts a quantity expressed in one measurement into base units.
// An empty measurement id means the quantity is already in base units.
func (c *QuantityConverter) ToBase(itemID entities.ItemID, unitID entities.MeasurementID, qty decimal.Decimal) (decimal.Decimal, error) {
	if unitID == "" {
		return qty, nil
	}
	m, ok := c.registry.Lookup(unitID)
	if !ok || m.ItemID != itemID {
		return decimal.Zero, &entities.InvalidMeasurementError{MeasurementID: unitID, ItemID: itemID, Reason: "unknown measurement"}
	}
	return qty.Mul(m.FactorToBase), nil
}

// Format renders a base-unit quantity as display text such as "2 box 5 pcs".
// Zero counts are omitted; an item without measurements is shown in its base unit.
func (c *QuantityConverter) Format(itemID entities.ItemID, total decimal.Decimal) (string, error) {
	decomposition, err := c.Decompose(itemID, total)
	if err != nil {
		return "", err
	}
	return FormatDecomposition(decomposition, c.registry.BaseUnitLabel(itemID)), nil
}

// FormatDecomposition renders a decomposition, falling back to baseUnit for the remainder
func FormatDecomposition(d Decomposition, baseUnit string) string {
	var parts []string
	for _, entry := range d.Breakdown {
		if entry.Count == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d %s", entry.Count, entry.Unit))
	}
	if !d.Remainder.IsZero() || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%s %s", d.Remainder.String(), baseUnit))
	}
	return strings.Join(parts, " ")
}
