package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// MeasurementRegistry indexes the alternate units of every item.
// It is built once from the catalog and passed to its consumers.
type MeasurementRegistry struct {
	byID   map[entities.MeasurementID]entities.MeasurementUnit
	byItem map[entities.ItemID][]entities.MeasurementUnit
	items  map[entities.ItemID]entities.Item
}

// NewMeasurementRegistry validates and indexes measurements and items
func NewMeasurementRegistry(items []*entities.Item, measurements []*entities.MeasurementUnit) (*MeasurementRegistry, error) {
	r := &MeasurementRegistry{
		byID:   make(map[entities.MeasurementID]entities.MeasurementUnit, len(measurements)),
		byItem: make(map[entities.ItemID][]entities.MeasurementUnit),
		items:  make(map[entities.ItemID]entities.Item, len(items)),
	}

	for _, item := range items {
		r.items[item.ID] = *item
	}

	for _, m := range measurements {
		if !m.FactorToBase.IsPositive() {
			return nil, &entities.InvalidMeasurementError{
				MeasurementID: m.ID,
				ItemID:        m.ItemID,
				Reason:        fmt.Sprintf("factor to base must be positive, got %s", m.FactorToBase.String()),
			}
		}
		if _, exists := r.byID[m.ID]; exists {
			return nil, &entities.InvalidMeasurementError{MeasurementID: m.ID, ItemID: m.ItemID, Reason: "duplicate measurement id"}
		}
		r.byID[m.ID] = *m
		r.byItem[m.ItemID] = append(r.byItem[m.ItemID], *m)
	}

	for itemID := range r.byItem {
		sortByFactorDesc(r.byItem[itemID])
	}

	return r, nil
}

// ForItem returns the item's measurements, largest factor first
func (r *MeasurementRegistry) ForItem(itemID entities.ItemID) []entities.MeasurementUnit {
	measurements := r.byItem[itemID]
	out := make([]entities.MeasurementUnit, len(measurements))
	copy(out, measurements)
	return out
}

// Lookup returns a measurement by id
func (r *MeasurementRegistry) Lookup(id entities.MeasurementID) (entities.MeasurementUnit, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Item returns the catalog item, if the registry was given it
func (r *MeasurementRegistry) Item(itemID entities.ItemID) (entities.Item, bool) {
	item, ok := r.items[itemID]
	return item, ok
}

// BaseUnitLabel returns the item's base unit, or "base" when the item is unknown
func (r *MeasurementRegistry) BaseUnitLabel(itemID entities.ItemID) string {
	if item, ok := r.items[itemID]; ok {
		return item.BaseUnit
	}
	return "base"
}

func sortByFactorDesc(measurements []entities.MeasurementUnit) {
	sort.SliceStable(measurements, func(i, j int) bool {
		cmp := measurements[i].FactorToBase.Cmp(measurements[j].FactorToBase)
		if cmp != 0 {
			return cmp > 0
		}
		return measurements[i].ID < measurements[j].ID
	})
}
