package repositories

import "github.com/vsinha/foodplan/pkg/domain/entities"

// CompositionRepository provides access to persisted composition edges
type CompositionRepository interface {
	// GetActiveEdges returns a snapshot of every active edge in the graph.
	GetActiveEdges() ([]entities.CompositionEdge, error)
	GetEdge(id entities.EdgeID) (*entities.CompositionEdge, error)
	GetComponents(parentID entities.ItemID) ([]entities.CompositionEdge, error)
	// SaveEdge inserts or replaces an edge, including soft-deleted ones.
	SaveEdge(edge entities.CompositionEdge) error
	LoadEdges(edges []entities.CompositionEdge) error
}
