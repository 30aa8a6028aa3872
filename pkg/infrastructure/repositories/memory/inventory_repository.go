package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
)

type stockKey struct {
	location string
	itemID   entities.ItemID
}

// InventoryRepository is an in-memory stock ledger: balances per (location, item)
// in base units plus the journal of movements that produced them.
type InventoryRepository struct {
	mutex     sync.RWMutex
	balances  map[stockKey]decimal.Decimal
	movements []entities.StockMovement
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		balances:  make(map[stockKey]decimal.Decimal),
		movements: []entities.StockMovement{},
	}
}

// Verify interface compliance
var _ repositories.StockLedger = (*InventoryRepository)(nil)

// SetBalance seeds the balance of an item at a location without journaling a movement
func (r *InventoryRepository) SetBalance(location string, itemID entities.ItemID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("balance for %s at %s cannot be negative: %s", itemID, location, balance)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.balances[stockKey{location: location, itemID: itemID}] = balance
	return nil
}

// GetBalance returns the stock on hand, zero for an unknown (location, item)
func (r *InventoryRepository) GetBalance(location string, itemID entities.ItemID) (decimal.Decimal, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.balances[stockKey{location: location, itemID: itemID}], nil
}

// Apply commits every movement or none. A movement that would drive a balance
// below zero rejects the whole batch.
func (r *InventoryRepository) Apply(movements []entities.StockMovement) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	pending := make(map[stockKey]decimal.Decimal)
	applied := make([]entities.StockMovement, 0, len(movements))

	for _, movement := range movements {
		key := stockKey{location: movement.Location, itemID: movement.ItemID}
		current, seen := pending[key]
		if !seen {
			current = r.balances[key]
		}

		next := current.Add(movement.Delta)
		if next.IsNegative() {
			return &entities.InsufficientStockError{
				ItemID:    movement.ItemID,
				Location:  movement.Location,
				Requested: movement.Delta.Neg(),
				Available: current,
			}
		}
		pending[key] = next

		movement.Balance = next
		applied = append(applied, movement)
	}

	for key, balance := range pending {
		r.balances[key] = balance
	}
	r.movements = append(r.movements, applied...)
	return nil
}

// GetMovements returns the journal of one (location, item), oldest first
func (r *InventoryRepository) GetMovements(location string, itemID entities.ItemID) ([]entities.StockMovement, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var movements []entities.StockMovement
	for _, movement := range r.movements {
		if movement.Location == location && movement.ItemID == itemID {
			movements = append(movements, movement)
		}
	}
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].RecordedAt.Before(movements[j].RecordedAt)
	})
	return movements, nil
}
