package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
)

// RecipeRepository provides in-memory recipe storage keyed by exact product name
type RecipeRepository struct {
	mutex   sync.RWMutex
	recipes map[string]entities.ProductRecipe
}

// NewRecipeRepository creates a new in-memory recipe repository
func NewRecipeRepository() *RecipeRepository {
	return &RecipeRepository{
		recipes: make(map[string]entities.ProductRecipe),
	}
}

// Verify interface compliance
var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// LoadRecipes loads recipes, replacing any earlier recipe of the same product
func (r *RecipeRepository) LoadRecipes(recipes []entities.ProductRecipe) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, recipe := range recipes {
		if recipe.Product == "" {
			return fmt.Errorf("recipe product name cannot be empty")
		}
		r.recipes[recipe.Product] = recipe
	}
	return nil
}

// GetRecipeBook returns a copy of the recipe dictionary
func (r *RecipeRepository) GetRecipeBook() (entities.RecipeBook, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	book := make(entities.RecipeBook, len(r.recipes))
	for product, recipe := range r.recipes {
		book[product] = recipe
	}
	return book, nil
}

// PlanArchive keeps processed plan snapshots in memory
type PlanArchive struct {
	mutex     sync.RWMutex
	snapshots map[string]*entities.PlanSnapshot
}

// NewPlanArchive creates an empty plan archive
func NewPlanArchive() *PlanArchive {
	return &PlanArchive{
		snapshots: make(map[string]*entities.PlanSnapshot),
	}
}

var _ repositories.PlanArchive = (*PlanArchive)(nil)

// Archive stores a snapshot. Archiving the same id twice fails.
func (a *PlanArchive) Archive(snapshot *entities.PlanSnapshot) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, exists := a.snapshots[snapshot.ID()]; exists {
		return fmt.Errorf("plan %s already archived", snapshot.ID())
	}
	a.snapshots[snapshot.ID()] = snapshot
	return nil
}

// Get returns an archived snapshot
func (a *PlanArchive) Get(id string) (*entities.PlanSnapshot, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	snapshot, exists := a.snapshots[id]
	if !exists {
		return nil, fmt.Errorf("plan not found in archive: %s", id)
	}
	return snapshot, nil
}

// IsArchived reports whether a snapshot id has been archived
func (a *PlanArchive) IsArchived(id string) bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	_, exists := a.snapshots[id]
	return exists
}
