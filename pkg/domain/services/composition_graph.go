package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// EdgeCommand describes an edge insert (empty EdgeID) or an edit of an existing edge
type EdgeCommand struct {
	EdgeID      entities.EdgeID
	ParentID    entities.ItemID
	ComponentID entities.ItemID
	Quantity    decimal.Decimal
	UnitID      entities.MeasurementID
	Optional    bool
}

// CompositionGraph is an in-memory arena of composition edges with index-based adjacency.
// It holds a caller-supplied snapshot; mutations apply only to the snapshot and only
// after every check has passed.
type CompositionGraph struct {
	edges     []entities.CompositionEdge
	edgeIndex map[entities.EdgeID]int
	nodes     []entities.ItemID
	nodeIndex map[entities.ItemID]int
	adjacency [][]int // node -> indexes into edges
	newID     func() entities.EdgeID
}

// NewCompositionGraph builds a graph over a snapshot of edges
func NewCompositionGraph(edges []entities.CompositionEdge) (*CompositionGraph, error) {
	g := &CompositionGraph{
		edges:     make([]entities.CompositionEdge, 0, len(edges)),
		edgeIndex: make(map[entities.EdgeID]int, len(edges)),
		nodeIndex: make(map[entities.ItemID]int),
		newID: func() entities.EdgeID {
			return entities.EdgeID(uuid.NewString())
		},
	}

	for _, edge := range edges {
		if _, exists := g.edgeIndex[edge.ID]; exists {
			return nil, fmt.Errorf("duplicate edge id in snapshot: %s", edge.ID)
		}
		if edge.ParentItemID == edge.ComponentItemID {
			return nil, &entities.SelfReferenceError{ItemID: edge.ParentItemID}
		}
		g.insert(edge)
	}

	return g, nil
}

// WithIDGenerator overrides how ids of new edges are generated
func (g *CompositionGraph) WithIDGenerator(newID func() entities.EdgeID) *CompositionGraph {
	g.newID = newID
	return g
}

// Guard returns a cycle guard over this graph
func (g *CompositionGraph) Guard() *CycleGuard {
	return NewCycleGuard(g)
}

// WouldCreateCycle reports whether parent -> component would close a loop
func (g *CompositionGraph) WouldCreateCycle(parentID, componentID entities.ItemID) (bool, []entities.ItemID) {
	return g.Guard().WouldCreateCycle(parentID, componentID)
}

// DetectCycles returns every cycle among the active edges
func (g *CompositionGraph) DetectCycles() [][]entities.ItemID {
	return g.Guard().DetectCycles()
}

// AddOrUpdateEdge validates and applies an edge insert or edit.
// On any error the graph is left unchanged.
func (g *CompositionGraph) AddOrUpdateEdge(cmd EdgeCommand) (entities.CompositionEdge, error) {
	if cmd.ParentID == cmd.ComponentID {
		return entities.CompositionEdge{}, &entities.SelfReferenceError{ItemID: cmd.ParentID}
	}
	if cmd.ParentID == "" || cmd.ComponentID == "" {
		return entities.CompositionEdge{}, &entities.ValidationError{Field: "edge", Reason: "parent and component item ids are required"}
	}
	if !cmd.Quantity.IsPositive() {
		return entities.CompositionEdge{}, &entities.ValidationError{
			Field:  "quantity per parent unit",
			Value:  cmd.Quantity.String(),
			Reason: "must be positive",
		}
	}

	var existing *entities.CompositionEdge
	if cmd.EdgeID != "" {
		idx, ok := g.edgeIndex[cmd.EdgeID]
		if !ok || !g.edges[idx].Active {
			return entities.CompositionEdge{}, &entities.ValidationError{Field: "edge id", Value: string(cmd.EdgeID), Reason: "no active edge with this id"}
		}
		current := g.edges[idx]
		existing = &current
	}

	for _, edge := range g.edges {
		if !edge.Active || edge.ID == cmd.EdgeID {
			continue
		}
		if edge.ParentItemID == cmd.ParentID && edge.ComponentItemID == cmd.ComponentID {
			return entities.CompositionEdge{}, &entities.DuplicateComponentError{
				ParentID:       cmd.ParentID,
				ComponentID:    cmd.ComponentID,
				ExistingEdgeID: edge.ID,
			}
		}
	}

	// Quantity, unit and optional-flag edits cannot change reachability
	structural := existing == nil ||
		existing.ParentItemID != cmd.ParentID ||
		existing.ComponentItemID != cmd.ComponentID
	if structural {
		if cycle, path := g.Guard().wouldCreateCycleExcluding(cmd.ParentID, cmd.ComponentID, cmd.EdgeID); cycle {
			return entities.CompositionEdge{}, &entities.CycleDetectedError{
				ParentID:    cmd.ParentID,
				ComponentID: cmd.ComponentID,
				Path:        path,
			}
		}
	}

	edge := entities.CompositionEdge{
		ID:                    cmd.EdgeID,
		ParentItemID:          cmd.ParentID,
		ComponentItemID:       cmd.ComponentID,
		QuantityPerParentUnit: cmd.Quantity,
		UnitID:                cmd.UnitID,
		Optional:              cmd.Optional,
		Active:                true,
	}

	if existing == nil {
		edge.ID = g.newID()
		g.insert(edge)
		return edge, nil
	}

	g.replace(edge)
	return edge, nil
}

// RemoveEdge soft-deletes an edge. Removal cannot introduce a cycle.
func (g *CompositionGraph) RemoveEdge(id entities.EdgeID) (entities.CompositionEdge, error) {
	idx, ok := g.edgeIndex[id]
	if !ok {
		return entities.CompositionEdge{}, &entities.ValidationError{Field: "edge id", Value: string(id), Reason: "edge not found"}
	}
	edge := g.edges[idx]
	if !edge.Active {
		return edge, nil
	}

	edge.Active = false
	g.replace(edge)
	return edge, nil
}

// Edge returns an edge by id, including soft-deleted ones
func (g *CompositionGraph) Edge(id entities.EdgeID) (entities.CompositionEdge, bool) {
	idx, ok := g.edgeIndex[id]
	if !ok {
		return entities.CompositionEdge{}, false
	}
	return g.edges[idx], true
}

// ActiveEdges returns a copy of all active edges in insertion order
func (g *CompositionGraph) ActiveEdges() []entities.CompositionEdge {
	active := make([]entities.CompositionEdge, 0, len(g.edges))
	for _, edge := range g.edges {
		if edge.Active {
			active = append(active, edge)
		}
	}
	return active
}

// Components returns the active edges leaving a parent item
func (g *CompositionGraph) Components(parentID entities.ItemID) []entities.CompositionEdge {
	node, ok := g.nodeIndex[parentID]
	if !ok {
		return nil
	}
	var components []entities.CompositionEdge
	for _, edgeIdx := range g.adjacency[node] {
		if edge := g.edges[edgeIdx]; edge.Active {
			components = append(components, edge)
		}
	}
	return components
}

func (g *CompositionGraph) node(id entities.ItemID) int {
	if idx, ok := g.nodeIndex[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIndex[id] = idx
	g.adjacency = append(g.adjacency, nil)
	return idx
}

func (g *CompositionGraph) insert(edge entities.CompositionEdge) {
	idx := len(g.edges)
	g.edges = append(g.edges, edge)
	g.edgeIndex[edge.ID] = idx

	parent := g.node(edge.ParentItemID)
	g.node(edge.ComponentItemID)
	g.adjacency[parent] = append(g.adjacency[parent], idx)
}

func (g *CompositionGraph) replace(edge entities.CompositionEdge) {
	idx := g.edgeIndex[edge.ID]
	old := g.edges[idx]
	g.edges[idx] = edge

	if old.ParentItemID == edge.ParentItemID {
		g.node(edge.ComponentItemID)
		return
	}

	oldParent := g.nodeIndex[old.ParentItemID]
	kept := g.adjacency[oldParent][:0]
	for _, edgeIdx := range g.adjacency[oldParent] {
		if edgeIdx != idx {
			kept = append(kept, edgeIdx)
		}
	}
	g.adjacency[oldParent] = kept

	parent := g.node(edge.ParentItemID)
	g.node(edge.ComponentItemID)
	g.adjacency[parent] = append(g.adjacency[parent], idx)
}
