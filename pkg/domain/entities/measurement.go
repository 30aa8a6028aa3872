package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MeasurementID identifies an alternate display unit of an item
type MeasurementID string

// MeasurementUnit is an alternate unit of an item. One unit equals FactorToBase base units.
type MeasurementUnit struct {
	ID           MeasurementID
	ItemID       ItemID
	Unit         string
	FactorToBase decimal.Decimal
}

// NewMeasurementUnit creates a validated MeasurementUnit
func NewMeasurementUnit(id MeasurementID, itemID ItemID, unit string, factorToBase decimal.Decimal) (*MeasurementUnit, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("measurement id cannot be empty")
	}
	if string(itemID) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if unit == "" {
		return nil, fmt.Errorf("unit label cannot be empty")
	}
	if !factorToBase.IsPositive() {
		return nil, &InvalidMeasurementError{
			MeasurementID: id,
			ItemID:        itemID,
			Reason:        fmt.Sprintf("factor to base must be positive, got %s", factorToBase.String()),
		}
	}

	return &MeasurementUnit{
		ID:           id,
		ItemID:       itemID,
		Unit:         unit,
		FactorToBase: factorToBase,
	}, nil
}

// MeasurementEntry is a count of one measurement, as entered on a stock screen
type MeasurementEntry struct {
	MeasurementID MeasurementID
	Count         int64
}
