package repository

import (
	"context"

	"wastemap/internal/model"
)

// WasteRepository defines data access for waste records using SQL queries only.
// No business logic here — strictly persistence operations.
type WasteRepository interface {
	// Create inserts a new record and returns it with the DB-assigned ID and
	// created_at populated.
	Create(ctx context.Context, rec *model.WasteRecord) (*model.WasteRecord, error)

	// FindByID returns a record by its ID.
	FindByID(ctx context.Context, id int64) (*model.WasteRecord, error)

	// List returns a paginated list of records and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.WasteRecord], error)

	// Update applies a partial metadata update. Nil fields are left unchanged,
	// which is how "not provided" is distinguished from "set to empty".
	// Returns the updated record.
	Update(ctx context.Context, id int64, fields UpdateFields) (*model.WasteRecord, error)

	// SetTier replaces the persistence-tier columns (hdfs_path, local_path,
	// upload_status) in a single statement so a record never transiently
	// claims two authoritative copies.
	SetTier(ctx context.Context, id int64, tier TierUpdate) error

	// Delete removes a record by ID. It returns nil if the row was deleted or
	// did not exist.
	Delete(ctx context.Context, id int64) error
}

// UpdateFields holds the optional metadata fields of a partial update.
type UpdateFields struct {
	Latitude    *float64
	Longitude   *float64
	Description *string
	Name        *string
	CustomID    *string
	Quantity    *int
	Status      *string
}

// TierUpdate is the full replacement value for a record's tier columns.
type TierUpdate struct {
	RemotePath   *string
	LocalPath    *string
	UploadStatus string
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
