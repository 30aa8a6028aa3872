package services

import (
	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// MovementValidator normalizes stock movement requests to base units and checks them
// against the stock on hand. It performs no persistence.
type MovementValidator struct {
	converter *QuantityConverter
}

// NewMovementValidator creates a validator over a quantity converter
func NewMovementValidator(converter *QuantityConverter) *MovementValidator {
	return &MovementValidator{converter: converter}
}

// Validate returns the base-unit delta the caller should persist
func (v *MovementValidator) Validate(req entities.StockMovementRequest) (entities.StockDelta, error) {
	if req.ItemID == "" {
		return entities.StockDelta{}, &entities.ValidationError{Field: "item id", Reason: "cannot be empty"}
	}
	if !req.Type.IsValid() {
		return entities.StockDelta{}, &entities.ValidationError{Field: "movement type", Reason: "unknown movement type"}
	}
	if req.CurrentStock.IsNegative() {
		return entities.StockDelta{}, &entities.ValidationError{Field: "current stock", Value: req.CurrentStock.String(), Reason: "cannot be negative"}
	}

	quantity, err := v.converter.Compose(req.ItemID, req.Entries, req.PlainQuantity)
	if err != nil {
		return entities.StockDelta{}, err
	}
	if !quantity.IsPositive() {
		return entities.StockDelta{}, &entities.ValidationError{Field: "movement quantity", Value: quantity.String(), Reason: "must be positive"}
	}

	delta := entities.StockDelta{
		ItemID:   req.ItemID,
		Location: req.Location,
		Type:     req.Type,
		Quantity: quantity,
	}

	if req.Type.IsOutbound() {
		if quantity.GreaterThan(req.CurrentStock) {
			return entities.StockDelta{}, &entities.InsufficientStockError{
				ItemID:    req.ItemID,
				Location:  req.Location,
				Requested: quantity,
				Available: req.CurrentStock,
			}
		}
		delta.Delta = quantity.Neg()
	} else {
		delta.Delta = quantity
	}
	delta.Resulting = req.CurrentStock.Add(delta.Delta)

	return delta, nil
}
