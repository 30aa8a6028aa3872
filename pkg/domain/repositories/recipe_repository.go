package repositories

import "github.com/vsinha/foodplan/pkg/domain/entities"

// RecipeRepository provides the read-only recipe dictionary
type RecipeRepository interface {
	GetRecipeBook() (entities.RecipeBook, error)
	LoadRecipes(recipes []entities.ProductRecipe) error
}

// PlanArchive keeps processed plan snapshots
type PlanArchive interface {
	Archive(snapshot *entities.PlanSnapshot) error
	Get(id string) (*entities.PlanSnapshot, error)
	IsArchived(id string) bool
}
