package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/foodplan/pkg/application/services/shared"
	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
	"github.com/vsinha/foodplan/pkg/domain/services"
	"github.com/vsinha/foodplan/pkg/infrastructure/events"
)

// MoveRequest is a stock movement as entered by an operator
type MoveRequest struct {
	ItemID        entities.ItemID
	Location      string
	Type          entities.MovementType
	Entries       []entities.MeasurementEntry
	PlainQuantity decimal.Decimal
	Note          string
}

// TransferRequest moves stock of one item between two locations
type TransferRequest struct {
	ItemID        entities.ItemID
	From          string
	To            string
	Entries       []entities.MeasurementEntry
	PlainQuantity decimal.Decimal
	Note          string
}

// Balance is the stock of one item at one location
type Balance struct {
	ItemID   entities.ItemID
	Location string
	Quantity decimal.Decimal
	Unit     string
	Display  string
}

// StockService validates movements against the ledger and commits them
type StockService struct {
	items        repositories.ItemRepository
	measurements repositories.MeasurementRepository
	ledger       repositories.StockLedger
	publisher    events.Publisher
	logger       *zap.Logger
	locks        *shared.KeyedLocks
	now          func() time.Time
}

// NewStockService creates a stock service. A nil publisher or logger disables that output.
func NewStockService(
	items repositories.ItemRepository,
	measurements repositories.MeasurementRepository,
	ledger repositories.StockLedger,
	publisher events.Publisher,
	logger *zap.Logger,
) *StockService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		items:        items,
		measurements: measurements,
		ledger:       ledger,
		publisher:    publisher,
		logger:       logger.Named("stock"),
		locks:        shared.NewKeyedLocks(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Move validates a single movement against the current balance and commits it
func (s *StockService) Move(ctx context.Context, req MoveRequest) (entities.StockMovement, error) {
	if err := ctx.Err(); err != nil {
		return entities.StockMovement{}, err
	}
	if req.Location == "" {
		return entities.StockMovement{}, &entities.ValidationError{Field: "location", Reason: "cannot be empty"}
	}

	validator, err := s.validator(req.ItemID)
	if err != nil {
		return entities.StockMovement{}, err
	}

	defer s.lock(shared.StockKey(req.ItemID, req.Location))()

	movement, err := s.prepare(validator, req.ItemID, req.Location, req.Type, req.Entries, req.PlainQuantity, req.Note)
	if err != nil {
		return entities.StockMovement{}, err
	}

	if err := s.ledger.Apply([]entities.StockMovement{movement}); err != nil {
		return entities.StockMovement{}, fmt.Errorf("failed to commit movement: %w", err)
	}

	s.committed(movement)
	return movement, nil
}

// Transfer moves stock between two locations as one ledger commit
func (s *StockService) Transfer(ctx context.Context, req TransferRequest) ([]entities.StockMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.From == "" || req.To == "" {
		return nil, &entities.ValidationError{Field: "location", Reason: "transfer needs a source and a destination"}
	}
	if req.From == req.To {
		return nil, &entities.ValidationError{Field: "location", Value: req.From, Reason: "transfer source and destination must differ"}
	}

	validator, err := s.validator(req.ItemID)
	if err != nil {
		return nil, err
	}

	keys := []string{shared.StockKey(req.ItemID, req.From), shared.StockKey(req.ItemID, req.To)}
	sort.Strings(keys)
	defer s.lock(keys[0])()
	defer s.lock(keys[1])()

	out, err := s.prepare(validator, req.ItemID, req.From, entities.MovementTransferOut, req.Entries, req.PlainQuantity, req.Note)
	if err != nil {
		return nil, err
	}
	in, err := s.prepare(validator, req.ItemID, req.To, entities.MovementTransferIn, req.Entries, req.PlainQuantity, req.Note)
	if err != nil {
		return nil, err
	}

	movements := []entities.StockMovement{out, in}
	if err := s.ledger.Apply(movements); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	for _, movement := range movements {
		s.committed(movement)
	}
	return movements, nil
}

// Balance returns the stock of an item at a location with its display breakdown
func (s *StockService) Balance(ctx context.Context, itemID entities.ItemID, location string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}

	converter, err := s.converter()
	if err != nil {
		return Balance{}, err
	}
	if _, ok := converter.Registry().Item(itemID); !ok {
		return Balance{}, &entities.ValidationError{Field: "item id", Value: string(itemID), Reason: "unknown item"}
	}

	qty, err := s.ledger.GetBalance(location, itemID)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to read balance: %w", err)
	}
	display, err := converter.Format(itemID, qty)
	if err != nil {
		return Balance{}, err
	}

	return Balance{
		ItemID:   itemID,
		Location: location,
		Quantity: qty,
		Unit:     converter.Registry().BaseUnitLabel(itemID),
		Display:  display,
	}, nil
}

// History returns the committed movements of an item at a location, oldest first
func (s *StockService) History(ctx context.Context, itemID entities.ItemID, location string) ([]entities.StockMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.GetMovements(location, itemID)
}

// prepare must be called with the stock key of location held
func (s *StockService) prepare(
	validator *services.MovementValidator,
	itemID entities.ItemID,
	location string,
	movementType entities.MovementType,
	entries []entities.MeasurementEntry,
	plain decimal.Decimal,
	note string,
) (entities.StockMovement, error) {
	current, err := s.ledger.GetBalance(location, itemID)
	if err != nil {
		return entities.StockMovement{}, fmt.Errorf("failed to read balance: %w", err)
	}

	delta, err := validator.Validate(entities.StockMovementRequest{
		ItemID:        itemID,
		Location:      location,
		Type:          movementType,
		Entries:       entries,
		PlainQuantity: plain,
		CurrentStock:  current,
	})
	if err != nil {
		s.logger.Info("movement rejected",
			zap.String("item", string(itemID)),
			zap.String("location", location),
			zap.String("type", movementType.String()),
			zap.Error(err),
		)
		return entities.StockMovement{}, err
	}

	return entities.StockMovement{
		ID:         uuid.NewString(),
		ItemID:     delta.ItemID,
		Location:   delta.Location,
		Type:       delta.Type,
		Delta:      delta.Delta,
		Balance:    delta.Resulting,
		Note:       note,
		RecordedAt: s.now(),
	}, nil
}

func (s *StockService) committed(movement entities.StockMovement) {
	event := events.NewStockMovementCommittedEvent(movement)
	if err := s.publisher.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type()), zap.Error(err))
	}
	s.logger.Info("movement committed",
		zap.String("movement", movement.ID),
		zap.String("item", string(movement.ItemID)),
		zap.String("location", movement.Location),
		zap.String("type", movement.Type.String()),
		zap.String("delta", movement.Delta.String()),
		zap.String("balance", movement.Balance.String()),
	)
}

func (s *StockService) lock(key string) func() {
	return s.locks.Lock(key)
}

func (s *StockService) validator(itemID entities.ItemID) (*services.MovementValidator, error) {
	converter, err := s.converter()
	if err != nil {
		return nil, err
	}
	if _, ok := converter.Registry().Item(itemID); !ok {
		return nil, &entities.ValidationError{Field: "item id", Value: string(itemID), Reason: "unknown item"}
	}
	return services.NewMovementValidator(converter), nil
}

func (s *StockService) converter() (*services.QuantityConverter, error) {
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
