package entities

import (
	"fmt"
	"strings"
)

// ItemID represents a unique catalog item identifier
type ItemID string

// ItemClass represents the classification of an item in the composition graph
type ItemClass int

const (
	FinishedGood ItemClass = iota
	SemiFinished
	RawMaterial
	Other
)

// String method for ItemClass enum
func (c ItemClass) String() string {
	switch c {
	case FinishedGood:
		return "FinishedGood"
	case SemiFinished:
		return "SemiFinished"
	case RawMaterial:
		return "RawMaterial"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// ParseItemClass parses the textual form produced by String, case-insensitively
func ParseItemClass(s string) (ItemClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "finishedgood", "finished_good", "fg":
		return FinishedGood, nil
	case "semifinished", "semi_finished", "sfg":
		return SemiFinished, nil
	case "rawmaterial", "raw_material", "rm":
		return RawMaterial, nil
	case "other", "":
		return Other, nil
	default:
		return Other, &ValidationError{Field: "class", Value: s, Reason: "expected FinishedGood, SemiFinished, RawMaterial or Other"}
	}
}

// Item represents a catalog item with its base unit of storage
type Item struct {
	ID           ItemID
	Code         string
	Name         string
	Class        ItemClass
	BaseUnit     string
	IsProducible bool
}

// NewItem creates a validated Item
func NewItem(id ItemID, code, name string, class ItemClass, baseUnit string, isProducible bool) (*Item, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}
	if baseUnit == "" {
		return nil, fmt.Errorf("base unit cannot be empty")
	}

	return &Item{
		ID:           id,
		Code:         code,
		Name:         name,
		Class:        class,
		BaseUnit:     baseUnit,
		IsProducible: isProducible,
	}, nil
}
