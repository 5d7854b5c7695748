package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wastemap/internal/model"
	"wastemap/internal/repository"
)

// WastePostgres is a PostgreSQL implementation of repository.WasteRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type WastePostgres struct {
	db *sql.DB
}

// NewWastePostgres creates a new WastePostgres repository.
func NewWastePostgres(db *sql.DB) *WastePostgres {
	return &WastePostgres{db: db}
}

var _ repository.WasteRepository = (*WastePostgres)(nil)

const wasteColumns = `id, latitude, longitude, description, name, custom_id, quantity, status, hdfs_path, local_path, upload_status, created_at`

func scanWaste(row interface{ Scan(...any) error }) (*model.WasteRecord, error) {
	var w model.WasteRecord
	var uploadStatus sql.NullString
	if err := row.Scan(
		&w.ID,
		&w.Latitude,
		&w.Longitude,
		&w.Description,
		&w.Name,
		&w.CustomID,
		&w.Quantity,
		&w.Status,
		&w.RemotePath,
		&w.LocalPath,
		&uploadStatus,
		&w.CreatedAt,
	); err != nil {
		return nil, err
	}
	w.UploadStatus = uploadStatus.String
	return &w, nil
}

// Create inserts a new record row and returns the stored record with its
// DB-assigned ID and timestamp.
func (r *WastePostgres) Create(ctx context.Context, rec *model.WasteRecord) (*model.WasteRecord, error) {
	const q = `
		INSERT INTO waste (latitude, longitude, description, name, custom_id, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + wasteColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.Latitude,
		rec.Longitude,
		rec.Description,
		rec.Name,
		rec.CustomID,
		rec.Quantity,
		rec.Status,
	)
	return scanWaste(row)
}

// FindByID fetches a single record by its ID.
func (r *WastePostgres) FindByID(ctx context.Context, id int64) (*model.WasteRecord, error) {
	const q = `SELECT ` + wasteColumns + ` FROM waste WHERE id = $1`
	return scanWaste(r.db.QueryRowContext(ctx, q, id))
}

// List returns records using LIMIT/OFFSET pagination and a total count.
func (r *WastePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.WasteRecord], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM waste`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT ` + wasteColumns + `
		FROM waste
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.WasteRecord, 0)
	for rows.Next() {
		w, err := scanWaste(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.WasteRecord]{
		Items: items,
		Total: total,
	}, nil
}

// Update applies the non-nil fields and returns the updated record.
// Returns sql.ErrNoRows if the record does not exist. A fully empty update
// degenerates to a read.
func (r *WastePostgres) Update(ctx context.Context, id int64, f repository.UpdateFields) (*model.WasteRecord, error) {
	set := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.Latitude != nil {
		add("latitude", *f.Latitude)
	}
	if f.Longitude != nil {
		add("longitude", *f.Longitude)
	}
	if f.Description != nil {
		add("description", *f.Description)
	}
	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.CustomID != nil {
		add("custom_id", *f.CustomID)
	}
	if f.Quantity != nil {
		add("quantity", *f.Quantity)
	}
	if f.Status != nil {
		add("status", *f.Status)
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	q := fmt.Sprintf(
		`UPDATE waste SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), wasteColumns,
	)
	return scanWaste(r.db.QueryRowContext(ctx, q, args...))
}

// SetTier replaces all three tier columns in one statement.
// Returns sql.ErrNoRows if the record does not exist.
func (r *WastePostgres) SetTier(ctx context.Context, id int64, tier repository.TierUpdate) error {
	const q = `UPDATE waste SET hdfs_path = $1, local_path = $2, upload_status = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, q, tier.RemotePath, tier.LocalPath, tier.UploadStatus, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record by ID. It does not return an error if the row does not exist.
func (r *WastePostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM waste WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
