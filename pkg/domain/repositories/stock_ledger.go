package repositories

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// StockLedger is the system of record for stock per (location, item) in base units
type StockLedger interface {
	GetBalance(location string, itemID entities.ItemID) (decimal.Decimal, error)
	// Apply commits all movements or none of them.
	Apply(movements []entities.StockMovement) error
	GetMovements(location string, itemID entities.ItemID) ([]entities.StockMovement, error)
}
