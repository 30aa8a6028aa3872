package composition

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/dto"
	"github.com/vsinha/foodplan/pkg/application/services/shared"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
	"github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
)

// CompositionService applies validated edits to the persisted composition graph
type CompositionService struct {
	items        repositories.ItemRepository
	measurements repositories.MeasurementRepository
	edges        repositories.CompositionRepository
	publisher    events.Publisher
	logger       *zap.Logger
	validator    *services.BOMValidator

	locks     *shared.KeyedLocks
	structure sync.Mutex // held by edits that can change reachability
	newID     func() entities.EdgeID
}

// NewCompositionService creates a composition service. A nil publisher or logger disables that output.
func NewCompositionService(
	items repositories.ItemRepository,
	measurements repositories.MeasurementRepository,
	edges repositories.CompositionRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *CompositionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositionService{
		items:        items,
		measurements: measurements,
		edges:        edges,
		publisher:    publisher,
		logger:       logger.Named("composition"),
		validator:    services.NewBOMValidator(),
		locks:        shared.NewKeyedLocks(),
	}
}

// WithIDGenerator overrides how ids of new edges are generated
func (s *CompositionService) WithIDGenerator(newID func() entities.EdgeID) *CompositionService {
	s.newID = newID
	return s
}

// SaveEdge inserts a new edge (empty EdgeID) or edits an existing one. Edits under
// the same parent are serialized; inserts and re-links are checked against a
// consistent snapshot of the whole graph.
func (s *CompositionService) SaveEdge(ctx context.Context, cmd services.EdgeCommand) (entities.CompositionEdge, error) {
	if err := ctx.Err(); err != nil {
		return entities.CompositionEdge{}, err
	}

	previous, unlock, err := s.lockEdge(cmd.EdgeID, true, func(previous *entities.CompositionEdge) func() {
		return s.lockEdit(cmd, previous)
	})
	if err != nil {
		return entities.CompositionEdge{}, err
	}
	defer unlock()

	if err := s.checkItems(cmd); err != nil {
		return entities.CompositionEdge{}, err
	}

	graph, err := s.loadGraph()
	if err != nil {
		return entities.CompositionEdge{}, err
	}

	saved, err := graph.AddOrUpdateEdge(cmd)
	if err != nil {
		s.logger.Info("edge rejected",
			zap.String("parent", string(cmd.ParentID)),
			zap.String("component", string(cmd.ComponentID)),
			zap.Error(err),
		)
		return entities.CompositionEdge{}, err
	}

	if err := s.edges.SaveEdge(saved); err != nil {
		return entities.CompositionEdge{}, fmt.Errorf("failed to persist edge %s: %w", saved.ID, err)
	}

	var event events.Event
	if previous == nil {
		event = events.NewEdgeCreatedEvent(saved)
	} else {
		event = events.NewEdgeUpdatedEvent(*previous, saved)
	}
	s.publish(event)

	s.logger.Info("edge saved",
		zap.String("edge", string(saved.ID)),
		zap.String("parent", string(saved.ParentItemID)),
		zap.String("component", string(saved.ComponentItemID)),
		zap.String("quantity", saved.QuantityPerParentUnit.String()),
		zap.Bool("created", previous == nil),
	)
	return saved, nil
}

// RemoveEdge soft-deletes an edge
func (s *CompositionService) RemoveEdge(ctx context.Context, id entities.EdgeID) (entities.CompositionEdge, error) {
	if err := ctx.Err(); err != nil {
		return entities.CompositionEdge{}, err
	}

	edge, unlock, err := s.lockEdge(id, false, func(edge *entities.CompositionEdge) func() {
		return s.lockParents([]entities.ItemID{edge.ParentItemID})
	})
	if err != nil {
		return entities.CompositionEdge{}, err
	}
	defer unlock()

	if !edge.Active {
		return *edge, nil
	}

	removed := *edge
	removed.Active = false
	if err := s.edges.SaveEdge(removed); err != nil {
		return entities.CompositionEdge{}, fmt.Errorf("failed to persist removal of edge %s: %w", id, err)
	}

	s.publish(events.NewEdgeRemovedEvent(removed))
	s.logger.Info("edge removed", zap.String("edge", string(id)))
	return removed, nil
}

// ImportEdges validates a whole edge set against the catalog and the current graph
// and loads it only if the combined graph stays valid
func (s *CompositionService) ImportEdges(ctx context.Context, edges []entities.CompositionEdge) (*services.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.structure.Lock()
	defer s.structure.Unlock()

	// edits in flight hold only their parent lock; keep them off every parent the import touches
	parents := make([]entities.ItemID, 0, len(edges))
	for _, edge := range edges {
		parents = append(parents, edge.ParentItemID)
		if existing, err := s.edges.GetEdge(edge.ID); err == nil && existing.ParentItemID != edge.ParentItemID {
			parents = append(parents, existing.ParentItemID)
		}
	}
	defer s.lockParents(parents)()

	current, err := s.edges.GetActiveEdges()
	if err != nil {
		return nil, fmt.Errorf("failed to load composition edges: %w", err)
	}
	items, err := s.items.GetAllItems()
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	incoming := make(map[entities.EdgeID]bool, len(edges))
	for _, edge := range edges {
		incoming[edge.ID] = true
	}
	combined := make([]entities.CompositionEdge, 0, len(current)+len(edges))
	for _, edge := range current {
		if !incoming[edge.ID] {
			combined = append(combined, edge)
		}
	}
	combined = append(combined, edges...)

	result := s.validator.ValidateBOM(combined, items)
	if !result.IsValid() {
		s.logger.Warn("edge import rejected",
			zap.Int("edges", len(edges)),
			zap.Strings("errors", result.Errors),
		)
		return result, nil
	}

	if err := s.edges.LoadEdges(edges); err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	for _, edge := range edges {
		s.publish(events.NewEdgeCreatedEvent(edge))
	}

	s.logger.Info("edges imported", zap.Int("edges", len(edges)))
	return result, nil
}

// Validate checks the persisted graph for cycles, duplicates and unknown items
func (s *CompositionService) Validate(ctx context.Context) (*services.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges, err := s.edges.GetActiveEdges()
	if err != nil {
		return nil, fmt.Errorf("failed to load composition edges: %w", err)
	}
	items, err := s.items.GetAllItems()
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	result := s.validator.ValidateBOM(edges, items)
	result.Errors = append(result.Errors, s.validator.ValidateItemUniqueness(items).Errors...)
	return result, nil
}

// Explode returns the leaf requirements for qty base units of an item, each with its
// display breakdown
func (s *CompositionService) Explode(ctx context.Context, itemID entities.ItemID, qty decimal.Decimal, includeOptional bool) ([]dto.ExplosionLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := s.items.GetItem(itemID); err != nil {
		return nil, fmt.Errorf("failed to explode %s: %w", itemID, err)
	}

	converter, err := s.converter()
	if err != nil {
		return nil, err
	}
	graph, err := s.loadGraph()
	if err != nil {
		return nil, err
	}

	requirements, err := services.NewBOMExplosion(graph, converter).Explode(itemID, qty, includeOptional)
	if err != nil {
		return nil, err
	}

	lines := make([]dto.ExplosionLine, 0, len(requirements))
	for _, req := range requirements {
		display, err := converter.Format(req.ItemID, req.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, dto.ExplosionLine{
			ItemID:   string(req.ItemID),
			Quantity: req.Quantity,
			Unit:     req.Unit,
			Display:  display,
		})
	}
	return lines, nil
}

func (s *CompositionService) checkItems(cmd services.EdgeCommand) error {
	for _, id := range []entities.ItemID{cmd.ParentID, cmd.ComponentID} {
		if id == "" {
			continue
		}
		if _, err := s.items.GetItem(id); err != nil {
			return &entities.ValidationError{Field: "item id", Value: string(id), Reason: "unknown item"}
		}
	}

	if cmd.UnitID == "" {
		return nil
	}
	measurements, err := s.measurements.GetMeasurements(cmd.ComponentID)
	if err != nil {
		return fmt.Errorf("failed to load measurements of %s: %w", cmd.ComponentID, err)
	}
	for _, m := range measurements {
		if m.ID == cmd.UnitID {
			return nil
		}
	}
	return &entities.InvalidMeasurementError{MeasurementID: cmd.UnitID, ItemID: cmd.ComponentID, Reason: "unknown measurement"}
}

func (s *CompositionService) loadGraph() (*services.CompositionGraph, error) {
	edges, err := s.edges.GetActiveEdges()
	if err != nil {
		return nil, fmt.Errorf("failed to load composition edges: %w", err)
	}
	graph, err := services.NewCompositionGraph(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build composition graph: %w", err)
	}
	if s.newID != nil {
		graph.WithIDGenerator(s.newID)
	}
	return graph, nil
}

func (s *CompositionService) converter() (*services.QuantityConverter, error) {
	items, err := s.items.GetAllItems()
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	measurements, err := s.measurements.GetAllMeasurements()
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}
	registry, err := services.NewMeasurementRegistry(items, measurements)
	if err != nil {
		return nil, err
	}
	return services.NewQuantityConverter(registry), nil
}

// lockEdge reads edge id, takes the locks returned by lock and reads the edge again.
// When the parent or component moved in between, the locks were chosen for a stale
// edge: they are released and the read starts over. An empty id locks for an insert.
func (s *CompositionService) lockEdge(
	id entities.EdgeID,
	activeOnly bool,
	lock func(edge *entities.CompositionEdge) func(),
) (*entities.CompositionEdge, func(), error) {
	for {
		seen, err := s.readEdge(id, activeOnly)
		if err != nil {
			return nil, nil, err
		}
		unlock := lock(seen)

		current, err := s.readEdge(id, activeOnly)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if sameLink(seen, current) {
			return current, unlock, nil
		}
		unlock()
	}
}

func (s *CompositionService) readEdge(id entities.EdgeID, activeOnly bool) (*entities.CompositionEdge, error) {
	if id == "" {
		return nil, nil
	}
	edge, err := s.edges.GetEdge(id)
	if err != nil {
		return nil, &entities.ValidationError{Field: "edge id", Value: string(id), Reason: "edge not found"}
	}
	if activeOnly && !edge.Active {
		return nil, &entities.ValidationError{Field: "edge id", Value: string(id), Reason: "no active edge with this id"}
	}
	return edge, nil
}

func sameLink(a, b *entities.CompositionEdge) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ParentItemID == b.ParentItemID && a.ComponentItemID == b.ComponentItemID
}

// lockEdit takes the structure lock when the edit can change reachability, then the
// parent locks of the old and new parent
func (s *CompositionService) lockEdit(cmd services.EdgeCommand, previous *entities.CompositionEdge) func() {
	structural := previous == nil ||
		previous.ParentItemID != cmd.ParentID ||
		previous.ComponentItemID != cmd.ComponentID
	if structural {
		s.structure.Lock()
	}

	parents := []entities.ItemID{cmd.ParentID}
	if previous != nil && previous.ParentItemID != cmd.ParentID {
		parents = append(parents, previous.ParentItemID)
	}
	unlockParents := s.lockParents(parents)

	return func() {
		unlockParents()
		if structural {
			s.structure.Unlock()
		}
	}
}

// lockParents takes each distinct parent lock once, in a stable order, and returns their release
func (s *CompositionService) lockParents(parents []entities.ItemID) func() {
	seen := make(map[entities.ItemID]bool, len(parents))
	keys := make([]string, 0, len(parents))
	for _, parent := range parents {
		if seen[parent] {
			continue
		}
		seen[parent] = true
		keys = append(keys, shared.ParentKey(parent))
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, s.locks.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func (s *CompositionService) publish(event events.Event) {
	if err := s.publisher.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type()), zap.Error(err))
	}
}
