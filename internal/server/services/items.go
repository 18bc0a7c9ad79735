package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/knifecatalog/internal/server/storage"
)

// ItemInput carries every field of a new catalog item.
type ItemInput struct {
	Name         string
	Manufacturer string
	SKU          string
	Price        float64
	Available    bool
	Description  string
}

// ItemPatch carries the fields of an update; nil means unchanged.
type ItemPatch struct {
	Name         *string
	Manufacturer *string
	SKU          *string
	Price        *float64
	Available    *bool
	Description  *string
}

// Upload is a photo supplied together with a create or update.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ItemService implements the catalog operations. Authorization happens in
// the transports before these methods are reached.
type ItemService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     storage.Storage
	log         logging.Logger
	now         func() time.Time
}

func NewItemService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, log logging.Logger) *ItemService {
	return &ItemService{
		db:          db,
		repomanager: m,
		storage:     st,
		log:         log.With("module", "items"),
		now:         time.Now,
	}
}

func (s *ItemService) List(ctx context.Context) ([]*models.Item, error) {
	return s.repomanager.Items(s.db).List(ctx)
}

func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	return s.repomanager.Items(s.db).GetByID(ctx, id)
}

func (s *ItemService) GetBySKU(ctx context.Context, sku string) (*models.Item, error) {
	return s.repomanager.Items(s.db).GetBySKU(ctx, sku)
}

// Create stores a new item and, when given, its photo. A duplicate SKU
// yields common.ErrorAlreadyExists and leaves no photo behind.
func (s *ItemService) Create(ctx context.Context, in ItemInput, photo *Upload) (*models.Item, error) {
	item := &models.Item{
		Name:         strings.TrimSpace(in.Name),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		SKU:          strings.TrimSpace(in.SKU),
		Price:        in.Price,
		Available:    in.Available,
		Description:  in.Description,
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}

	if photo != nil {
		key, err := s.storePhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		item.Photo = key
	}

	if err := s.repomanager.Items(s.db).Create(ctx, item); err != nil {
		s.dropPhoto(ctx, item.Photo)
		return nil, err
	}

	s.log.Info(ctx, "item created", "id", item.ID, "sku", item.SKU)
	return item, nil
}

// Update applies patch (and a replacement photo) to the item with id.
// The previous photo is removed once the row is updated.
func (s *ItemService) Update(ctx context.Context, id int64, patch ItemPatch, photo *Upload) (*models.Item, error) {
	repo := s.repomanager.Items(s.db)

	item, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(item)
	if err := validateItem(item); err != nil {
		return nil, err
	}

	oldPhoto := item.Photo
	if photo != nil {
		key, err := s.storePhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		item.Photo = key
	}

	if err := repo.Update(ctx, item); err != nil {
		if item.Photo != oldPhoto {
			s.dropPhoto(ctx, item.Photo)
		}
		return nil, err
	}
	if item.Photo != oldPhoto {
		s.dropPhoto(ctx, oldPhoto)
	}

	s.log.Info(ctx, "item updated", "id", item.ID, "sku", item.SKU)
	return item, nil
}

// Delete removes the item and its photo.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	repo := s.repomanager.Items(s.db)

	item, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	s.dropPhoto(ctx, item.Photo)

	s.log.Info(ctx, "item deleted", "id", id, "sku", item.SKU)
	return nil
}

// PhotoURL resolves where clients can fetch the item photo; "" when there is none.
func (s *ItemService) PhotoURL(ctx context.Context, item *models.Item) string {
	if item.Photo == "" {
		return ""
	}
	u, err := s.storage.URL(ctx, item.Photo)
	if err != nil {
		s.log.Warn(ctx, "failed to resolve photo url", "key", item.Photo, "error", err)
		return ""
	}
	return u
}

// OpenPhoto streams a stored photo by key.
func (s *ItemService) OpenPhoto(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Open(ctx, key)
}

func (p ItemPatch) apply(item *models.Item) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Manufacturer != nil {
		item.Manufacturer = strings.TrimSpace(*p.Manufacturer)
	}
	if p.SKU != nil {
		item.SKU = strings.TrimSpace(*p.SKU)
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
}

func validateItem(item *models.Item) error {
	var errs []error
	if item.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if item.SKU == "" {
		errs = append(errs, errors.New("sku is required"))
	}
	if item.Price < 0 {
		errs = append(errs, errors.New("price must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrorValidation, errors.Join(errs...))
	}
	return nil
}

func (s *ItemService) storePhoto(ctx context.Context, photo *Upload) (string, error) {
	key := storage.NewKey(s.now(), photo.Filename)
	if err := s.storage.Put(ctx, key, photo.ContentType, photo.Body, photo.Size); err != nil {
		return "", fmt.Errorf("error storing photo: %w", err)
	}
	return key, nil
}

// dropPhoto deletes a stored photo, logging instead of failing.
func (s *ItemService) dropPhoto(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to delete photo", "key", key, "error", err)
	}
}
