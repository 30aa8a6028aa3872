package planning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/dto"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
	"github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
)

// Options controls how plans are processed
type Options struct {
	// FailOnMissingRecipe turns a product without recipe into a hard error
	FailOnMissingRecipe bool
}

// PlanningService materializes production grids into snapshots and expands each
// snapshot through the recipe book exactly once
type PlanningService struct {
	recipes   repositories.RecipeRepository
	archive   repositories.PlanArchive
	publisher events.Publisher
	logger    *zap.Logger
	expander  *services.RecipeExpander
	options   Options

	mutex   sync.Mutex
	pending map[string]*entities.PlanSnapshot
	now     func() time.Time
	newID   func() string
}

// NewPlanningService creates a planning service. A nil publisher or logger disables that output.
func NewPlanningService(
	recipes repositories.RecipeRepository,
	archive repositories.PlanArchive,
	publisher events.Publisher,
	logger *zap.Logger,
	options Options,
) *PlanningService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{
		recipes:   recipes,
		archive:   archive,
		publisher: publisher,
		logger:    logger.Named("planning"),
		expander:  services.NewRecipeExpander(),
		options:   options,
		pending:   make(map[string]*entities.PlanSnapshot),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Submit freezes the rows into a new plan snapshot awaiting processing
func (s *PlanningService) Submit(ctx context.Context, rows []entities.ProductionTargetRow) (*entities.PlanSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &entities.ValidationError{Field: "plan", Reason: "at least one product row is required"}
	}

	snapshot, err := entities.NewPlanSnapshot(s.newID(), s.now(), rows)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan snapshot: %w", err)
	}

	s.mutex.Lock()
	s.pending[snapshot.ID()] = snapshot
	s.mutex.Unlock()

	s.publish(events.NewPlanSubmittedEvent(snapshot.ID(), len(rows)))
	s.logger.Info("plan submitted", zap.String("plan", snapshot.ID()), zap.Int("rows", len(rows)))
	return snapshot, nil
}

// Process expands a submitted snapshot into its materials report and archives it.
// A snapshot is processed at most once.
func (s *PlanningService) Process(ctx context.Context, planID string) (*dto.MaterialsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.archive.IsArchived(planID) {
		return nil, &entities.ValidationError{Field: "plan", Value: planID, Reason: "already processed"}
	}
	snapshot, exists := s.pending[planID]
	if !exists {
		return nil, &entities.ValidationError{Field: "plan", Value: planID, Reason: "not submitted"}
	}

	book, err := s.recipes.GetRecipeBook()
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe book: %w", err)
	}

	result, err := s.expander.ExpandSnapshot(snapshot, book)
	if err != nil {
		return nil, fmt.Errorf("failed to expand plan %s: %w", planID, err)
	}

	if s.options.FailOnMissingRecipe && len(result.Missing) > 0 {
		missing := result.Missing[0]
		return nil, fmt.Errorf("plan %s: %w", planID, &missing)
	}

	if err := s.archive.Archive(snapshot); err != nil {
		return nil, fmt.Errorf("failed to archive plan %s: %w", planID, err)
	}
	delete(s.pending, planID)

	for _, missing := range result.Missing {
		s.logger.Warn("product has no recipe",
			zap.String("plan", planID),
			zap.String("product", missing.Product),
		)
		s.publish(events.NewRecipeMissingEvent(planID, missing.Product))
	}

	report := BuildReport(snapshot, result)
	s.publish(events.NewPlanProcessedEvent(planID, report.GrandTotal, len(report.Materials), len(report.MissingProducts)))
	s.logger.Info("plan processed",
		zap.String("plan", planID),
		zap.Int64("grand_total", report.GrandTotal),
		zap.Int("materials", len(report.Materials)),
		zap.Int("missing", len(report.MissingProducts)),
	)
	return report, nil
}

// Plan submits and processes rows in one step
func (s *PlanningService) Plan(ctx context.Context, rows []entities.ProductionTargetRow) (*dto.MaterialsReport, error) {
	snapshot, err := s.Submit(ctx, rows)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, snapshot.ID())
}

// BuildReport flattens an expansion result into a materials report
func BuildReport(snapshot *entities.PlanSnapshot, result *services.ExpansionResult) *dto.MaterialsReport {
	missing := make(map[string]bool, len(result.Missing))
	report := &dto.MaterialsReport{
		PlanID:          snapshot.ID(),
		CreatedAt:       snapshot.CreatedAt(),
		Locations:       result.Locations(),
		PerLocation:     make(map[string]int64, len(result.PerLocation)),
		GrandTotal:      result.GrandTotal,
		Products:        make([]dto.ProductLine, 0, len(result.Products)),
		Materials:       make([]dto.MaterialLine, 0),
		MissingProducts: make([]string, 0, len(result.Missing)),
	}

	for _, m := range result.Missing {
		missing[m.Product] = true
		report.MissingProducts = append(report.MissingProducts, m.Product)
	}
	for location, qty := range result.PerLocation {
		report.PerLocation[location] = qty
	}
	for _, product := range result.Products {
		perLocation := make(map[string]int64, len(product.PerLocation))
		for location, qty := range product.PerLocation {
			perLocation[location] = qty
		}
		report.Products = append(report.Products, dto.ProductLine{
			Product:     product.Product,
			PerLocation: perLocation,
			Total:       product.Total,
			HasRecipe:   !missing[product.Product],
		})
	}
	for _, material := range result.MaterialLines() {
		report.Materials = append(report.Materials, dto.MaterialLine{
			Category: material.Category.String(),
			Name:     material.Name,
			Quantity: material.Quantity,
			Unit:     material.Unit,
		})
	}
	return report
}

func (s *PlanningService) publish(event events.Event) {
	if err := s.publisher.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type()), zap.Error(err))
	}
}
