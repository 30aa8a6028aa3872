package events

import (
	"github.com/vsinha/foodplan/pkg/domain/entities"
)

const (
	EdgeCreatedEvent = "composition.edge.created"
	EdgeUpdatedEvent = "composition.edge.updated"
	EdgeRemovedEvent = "composition.edge.removed"

	StockMovementCommittedEvent = "stock.movement.committed"

	PlanSubmittedEvent = "plan.submitted"
	PlanProcessedEvent = "plan.processed"
	RecipeMissingEvent = "recipe.missing"
)

type EdgeCreated struct {
	Edge entities.CompositionEdge `json:"edge"`
}

type EdgeUpdated struct {
	OldEdge entities.CompositionEdge `json:"old_edge"`
	NewEdge entities.CompositionEdge `json:"new_edge"`
}

type EdgeRemoved struct {
	Edge entities.CompositionEdge `json:"edge"`
}

type StockMovementCommitted struct {
	Movement entities.StockMovement `json:"movement"`
}

type PlanSubmitted struct {
	PlanID   string `json:"plan_id"`
	Products int    `json:"products"`
}

type PlanProcessed struct {
	PlanID     string `json:"plan_id"`
	GrandTotal int64  `json:"grand_total"`
	Materials  int    `json:"materials"`
	Missing    int    `json:"missing"`
}

type RecipeMissing struct {
	PlanID  string `json:"plan_id"`
	Product string `json:"product"`
}

func NewEdgeCreatedEvent(edge entities.CompositionEdge) Event {
	return NewEvent(EdgeCreatedEvent, string(edge.ParentItemID), EdgeCreated{Edge: edge})
}

func NewEdgeUpdatedEvent(oldEdge, newEdge entities.CompositionEdge) Event {
	return NewEvent(EdgeUpdatedEvent, string(newEdge.ParentItemID), EdgeUpdated{
		OldEdge: oldEdge,
		NewEdge: newEdge,
	})
}

func NewEdgeRemovedEvent(edge entities.CompositionEdge) Event {
	return NewEvent(EdgeRemovedEvent, string(edge.ParentItemID), EdgeRemoved{Edge: edge})
}

// NewStockMovementCommittedEvent streams by location and item so each ledger cell has its own history
func NewStockMovementCommittedEvent(movement entities.StockMovement) Event {
	return NewEvent(
		StockMovementCommittedEvent,
		movement.Location+"/"+string(movement.ItemID),
		StockMovementCommitted{Movement: movement},
	)
}

func NewPlanSubmittedEvent(planID string, products int) Event {
	return NewEvent(PlanSubmittedEvent, planID, PlanSubmitted{PlanID: planID, Products: products})
}

func NewPlanProcessedEvent(planID string, grandTotal int64, materials, missing int) Event {
	return NewEvent(PlanProcessedEvent, planID, PlanProcessed{
		PlanID:     planID,
		GrandTotal: grandTotal,
		Materials:  materials,
		Missing:    missing,
	})
}

func NewRecipeMissingEvent(planID, product string) Event {
	return NewEvent(RecipeMissingEvent, planID, RecipeMissing{PlanID: planID, Product: product})
}
