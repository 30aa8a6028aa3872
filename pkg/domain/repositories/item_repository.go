package repositories

import "github.com/vsinha/foodplan/pkg/domain/entities"

// ItemRepository provides access to catalog item master data
type ItemRepository interface {
	GetItem(id entities.ItemID) (*entities.Item, error)
	GetAllItems() ([]*entities.Item, error)
	LoadItems(items []*entities.Item) error
}

// MeasurementRepository provides access to the alternate units of items
type MeasurementRepository interface {
	GetMeasurements(itemID entities.ItemID) ([]*entities.MeasurementUnit, error)
	GetAllMeasurements() ([]*entities.MeasurementUnit, error)
	LoadMeasurements(measurements []*entities.MeasurementUnit) error
}
