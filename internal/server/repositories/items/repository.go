package items

import (
	"context"

	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
)

// Repository persists catalog items.
type Repository interface {
	// Create inserts item and fills in ID, CreatedAt and UpdatedAt.
	// A duplicate SKU yields common.ErrorAlreadyExists.
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	GetBySKU(ctx context.Context, sku string) (*models.Item, error)
	List(ctx context.Context) ([]*models.Item, error)
	// Update overwrites all mutable columns of the row identified by item.ID.
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error
}
