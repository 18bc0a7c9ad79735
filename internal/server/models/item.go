// Package models defines server-side data models persisted in the database.
package models

import "time"

// Item is a catalog entry. SKU is unique across the catalog.
type Item struct {
	ID           int64
	Name         string
	Manufacturer string
	SKU          string
	Price        float64
	Available    bool
	Description  string
	// Photo is the storage key of the item photo; empty when there is none.
	Photo     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
