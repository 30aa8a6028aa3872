package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
)

// ItemRepository provides in-memory catalog storage: items and their measurements
type ItemRepository struct {
	mutex        sync.RWMutex
	items        []entities.Item
	itemsMap     map[entities.ItemID]int
	measurements []entities.MeasurementUnit
	byItem       map[entities.ItemID][]int
}

// NewItemRepository creates a new in-memory item repository
func NewItemRepository(expectedItems int) *ItemRepository {
	return &ItemRepository{
		items:    make([]entities.Item, 0, expectedItems),
		itemsMap: make(map[entities.ItemID]int, expectedItems),
		byItem:   make(map[entities.ItemID][]int, expectedItems),
	}
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)
var _ repositories.MeasurementRepository = (*ItemRepository)(nil)

// LoadItems loads items into the repository
func (r *ItemRepository) LoadItems(items []*entities.Item) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, item := range items {
		r.addItem(*item)
	}
	return nil
}

// AddItem adds or replaces an item
func (r *ItemRepository) AddItem(item entities.Item) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.addItem(item)
}

func (r *ItemRepository) addItem(item entities.Item) {
	if index, exists := r.itemsMap[item.ID]; exists {
		r.items[index] = item
		return
	}
	r.itemsMap[item.ID] = len(r.items)
	r.items = append(r.items, item)
}

// GetItem returns item master data for an item id
func (r *ItemRepository) GetItem(id entities.ItemID) (*entities.Item, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	index, exists := r.itemsMap[id]
	if !exists {
		return nil, fmt.Errorf("item not found: %s", id)
	}
	item := r.items[index]
	return &item, nil
}

// GetAllItems returns all items in load order
func (r *ItemRepository) GetAllItems() ([]*entities.Item, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	items := make([]*entities.Item, 0, len(r.items))
	for i := range r.items {
		item := r.items[i]
		items = append(items, &item)
	}
	return items, nil
}

// LoadMeasurements loads measurements into the repository.
// Factors are checked here so a bad unit never reaches the registry.
func (r *ItemRepository) LoadMeasurements(measurements []*entities.MeasurementUnit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, m := range measurements {
		if !m.FactorToBase.IsPositive() {
			return &entities.InvalidMeasurementError{
				MeasurementID: m.ID,
				ItemID:        m.ItemID,
				Reason:        fmt.Sprintf("factor to base must be positive, got %s", m.FactorToBase),
			}
		}
		index := len(r.measurements)
		r.measurements = append(r.measurements, *m)
		r.byItem[m.ItemID] = append(r.byItem[m.ItemID], index)
	}
	return nil
}

// GetMeasurements returns the measurements of one item, largest factor first
func (r *ItemRepository) GetMeasurements(itemID entities.ItemID) ([]*entities.MeasurementUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	indexes := r.byItem[itemID]
	measurements := make([]*entities.MeasurementUnit, 0, len(indexes))
	for _, index := range indexes {
		m := r.measurements[index]
		measurements = append(measurements, &m)
	}
	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].FactorToBase.GreaterThan(measurements[j].FactorToBase)
	})
	return measurements, nil
}

// GetAllMeasurements returns every measurement in load order
func (r *ItemRepository) GetAllMeasurements() ([]*entities.MeasurementUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	measurements := make([]*entities.MeasurementUnit, 0, len(r.measurements))
	for i := range r.measurements {
		m := r.measurements[i]
		measurements = append(measurements, &m)
	}
	return measurements, nil
}
