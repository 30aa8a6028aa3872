package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
)

// CompositionRepository provides memory-efficient composition edge storage.
// Edges live in one slice; per-parent indexes point into it.
type CompositionRepository struct {
	mutex     sync.RWMutex
	edges     []entities.CompositionEdge
	edgeIndex map[entities.EdgeID]int
	byParent  map[entities.ItemID][]int
}

// NewCompositionRepository creates a composition repository sized for the expected edge count
func NewCompositionRepository(expectedEdges int) *CompositionRepository {
	return &CompositionRepository{
		edges:     make([]entities.CompositionEdge, 0, expectedEdges),
		edgeIndex: make(map[entities.EdgeID]int, expectedEdges),
		byParent:  make(map[entities.ItemID][]int),
	}
}

// Verify interface compliance
var _ repositories.CompositionRepository = (*CompositionRepository)(nil)

// LoadEdges loads edges into the repository
func (r *CompositionRepository) LoadEdges(edges []entities.CompositionEdge) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, edge := range edges {
		if err := r.save(edge); err != nil {
			return err
		}
	}
	return nil
}

// SaveEdge inserts a new edge or replaces the stored version of an existing one
func (r *CompositionRepository) SaveEdge(edge entities.CompositionEdge) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.save(edge)
}

func (r *CompositionRepository) save(edge entities.CompositionEdge) error {
	if edge.ID == "" {
		return fmt.Errorf("edge id cannot be empty")
	}

	index, exists := r.edgeIndex[edge.ID]
	if !exists {
		index = len(r.edges)
		r.edges = append(r.edges, edge)
		r.edgeIndex[edge.ID] = index
		r.byParent[edge.ParentItemID] = append(r.byParent[edge.ParentItemID], index)
		return nil
	}

	old := r.edges[index]
	r.edges[index] = edge
	if old.ParentItemID != edge.ParentItemID {
		kept := r.byParent[old.ParentItemID][:0]
		for _, i := range r.byParent[old.ParentItemID] {
			if i != index {
				kept = append(kept, i)
			}
		}
		r.byParent[old.ParentItemID] = kept
		r.byParent[edge.ParentItemID] = append(r.byParent[edge.ParentItemID], index)
	}
	return nil
}

// GetEdge returns an edge by id, including soft-deleted ones
func (r *CompositionRepository) GetEdge(id entities.EdgeID) (*entities.CompositionEdge, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	index, exists := r.edgeIndex[id]
	if !exists {
		return nil, fmt.Errorf("edge not found: %s", id)
	}
	edge := r.edges[index]
	return &edge, nil
}

// GetComponents returns the active edges of a parent item
func (r *CompositionRepository) GetComponents(parentID entities.ItemID) ([]entities.CompositionEdge, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var components []entities.CompositionEdge
	for _, index := range r.byParent[parentID] {
		if edge := r.edges[index]; edge.Active {
			components = append(components, edge)
		}
	}
	return components, nil
}

// GetActiveEdges returns a snapshot of all active edges in insertion order
func (r *CompositionRepository) GetActiveEdges() ([]entities.CompositionEdge, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	active := make([]entities.CompositionEdge, 0, len(r.edges))
	for _, edge := range r.edges {
		if edge.Active {
			active = append(active, edge)
		}
	}
	return active, nil
}
