package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the kind of stock movement
type MovementType int

const (
	MovementIn MovementType = iota
	MovementOut
	MovementTransferIn
	MovementTransferOut
	MovementLeftoverReturn
)

// String method for MovementType enum
func (m MovementType) String() string {
	switch m {
	case MovementIn:
		return "IN"
	case MovementOut:
		return "OUT"
	case MovementTransferIn:
		return "TRANSFER_IN"
	case MovementTransferOut:
		return "TRANSFER_OUT"
	case MovementLeftoverReturn:
		return "LEFTOVER_RETURN"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether m is one of the declared movement types
func (m MovementType) IsValid() bool {
	return m >= MovementIn && m <= MovementLeftoverReturn
}

// IsOutbound reports whether the movement removes stock and is bounded by stock on hand
func (m MovementType) IsOutbound() bool {
	return m == MovementOut || m == MovementTransferOut
}

// ParseMovementType parses the textual form produced by String
func ParseMovementType(s string) (MovementType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return MovementIn, nil
	case "OUT":
		return MovementOut, nil
	case "TRANSFER_IN":
		return MovementTransferIn, nil
	case "TRANSFER_OUT":
		return MovementTransferOut, nil
	case "LEFTOVER_RETURN":
		return MovementLeftoverReturn, nil
	default:
		return MovementIn, &ValidationError{Field: "movement type", Value: s, Reason: "expected IN, OUT, TRANSFER_IN, TRANSFER_OUT or LEFTOVER_RETURN"}
	}
}

// StockMovementRequest is a requested movement before unit normalization.
// Either Entries or PlainQuantity is used; PlainQuantity is added to the entries' total.
type StockMovementRequest struct {
	ItemID        ItemID
	Location      string
	Type          MovementType
	Entries       []MeasurementEntry
	PlainQuantity decimal.Decimal
	CurrentStock  decimal.Decimal
}

// StockDelta is the normalized base-unit change for the caller to persist
type StockDelta struct {
	ItemID    ItemID
	Location  string
	Type      MovementType
	Quantity  decimal.Decimal // always positive, in base units
	Delta     decimal.Decimal // signed change to apply to the ledger
	Resulting decimal.Decimal // stock after the change
}

// StockMovement is a committed movement as recorded in the ledger journal
type StockMovement struct {
	ID         string
	ItemID     ItemID
	Location   string
	Type       MovementType
	Delta      decimal.Decimal
	Balance    decimal.Decimal
	Note       string
	RecordedAt time.Time
}
