// Package items provides a PostgreSQL-backed repository for catalog items.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/dbx"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
)

const skuConstraint = "items_sku_key"

const selectColumns = `id, name, manufacturer, sku, price, available, description, photo, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	item := &models.Item{}
	err := s.Scan(&item.ID, &item.Name, &item.Manufacturer, &item.SKU, &item.Price,
		&item.Available, &item.Description, &item.Photo, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (name, manufacturer, sku, price, available, description, photo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.Name, item.Manufacturer, item.SKU, item.Price, item.Available, item.Description, item.Photo,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, skuConstraint) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + selectColumns + ` FROM items WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetBySKU(ctx context.Context, sku string) (*models.Item, error) {
	query := `SELECT ` + selectColumns + ` FROM items WHERE sku = $1`
	return r.getOne(ctx, query, sku)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + selectColumns + ` FROM items ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items
		SET name = $2, manufacturer = $3, sku = $4, price = $5, available = $6,
			description = $7, photo = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.ID, item.Name, item.Manufacturer, item.SKU, item.Price, item.Available, item.Description, item.Photo,
	).Scan(&item.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrorNotFound
		case dbx.IsUniqueViolation(err, skuConstraint):
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
