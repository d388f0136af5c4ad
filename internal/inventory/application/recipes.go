package application

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// RecipeResolver maps a product to the ingredients one unit consumes.
type RecipeResolver struct {
	tx      Transactor
	recipes RecipeRepository
	stock   StockRepository
}

func NewRecipeResolver(tx Transactor, recipes RecipeRepository, stock StockRepository) *RecipeResolver {
	return &RecipeResolver{tx: tx, recipes: recipes, stock: stock}
}

// Resolve returns the product's ingredient lines in recipe order. A product
// without a recipe yields an empty slice.
func (r *RecipeResolver) Resolve(ctx context.Context, productID string) ([]domain.Recipe, error) {
	return r.recipes.ByProduct(ctx, productID)
}

// Put creates or replaces one recipe line. The ingredient must have a stock row.
func (r *RecipeResolver) Put(ctx context.Context, rec domain.Recipe) (domain.Recipe, error) {
	if err := rec.Validate(); err != nil {
		return domain.Recipe{}, apperr.Invalid("recipe", "%s", err.Error())
	}
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		ing, err := r.stock.Get(ctx, domain.IngredientKey(rec.IngredientID))
		if err != nil {
			return err
		}
		if rec.Unit == "" {
			rec.Unit = ing.Unit
		}
		return r.recipes.Put(ctx, rec)
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	return rec, nil
}

func (r *RecipeResolver) Delete(ctx context.Context, productID, ingredientID string) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		return r.recipes.Delete(ctx, productID, ingredientID)
	})
}
