package model

import "time"

// Upload status lifecycle for a record's attached file.
//
//	(no file) --attach--> pending --write ok--> uploaded
//	                      pending --write err-> failed --retry ok--> uploaded
//
// There is no transition out of "uploaded" except deletion of the record.
const (
	UploadStatusPending  = "pending"
	UploadStatusUploaded = "uploaded"
	UploadStatusFailed   = "failed"
)

// WasteRecord represents a geotagged waste report with an optional attached file.
// This is a pure domain model with no database-specific dependencies or tags.
//
// Tier fields: RemotePath is set iff the file lives in the distributed store,
// LocalPath is set iff a fallback copy sits in the local cache. At most one of
// the two is ever populated; UploadStatus says which.
type WasteRecord struct {
	ID           int64     `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Description  string    `json:"description"`
	Name         string    `json:"name"`
	CustomID     string    `json:"custom_id"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	RemotePath   *string   `json:"hdfs_path"`
	LocalPath    *string   `json:"local_path,omitempty"`
	UploadStatus string    `json:"upload_status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasFile reports whether the record owns a file in either tier.
func (w *WasteRecord) HasFile() bool {
	return w.RemotePath != nil || w.LocalPath != nil
}
