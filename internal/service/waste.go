package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"

	"wastemap/internal/cache"
	"wastemap/internal/model"
	"wastemap/internal/repository"
	"wastemap/internal/storage"
)

var (
	ErrNotFound = errors.New("waste record not found")
	ErrNoFile   = errors.New("no file attached")
)

// FileUpload is an incoming attachment: the client-supplied filename and the
// request body stream. The stream is consumed exactly once.
type FileUpload struct {
	Filename string
	Reader   io.Reader
}

// CreateInput carries a create request. Latitude/longitude are validated by
// the transport layer before the service is invoked.
type CreateInput struct {
	Latitude    float64
	Longitude   float64
	Description string
	Name        string
	CustomID    string
	Quantity    int
	Status      string
	File        *FileUpload
}

// CreateResult is the outcome of a create request. UploadError is non-empty
// when the attached file could not reach the distributed store and fell back
// to the local cache; the request itself still succeeded.
type CreateResult struct {
	Record      *model.WasteRecord
	UploadError string
}

// UpdateInput holds the optional fields of a partial metadata update.
// Nil means "not provided"; a pointer to the zero value means "set to empty".
type UpdateInput struct {
	Latitude    *float64
	Longitude   *float64
	Description *string
	Name        *string
	CustomID    *string
	Quantity    *int
	Status      *string
}

// RetryResult is the outcome of a retry-upload request.
type RetryResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RemotePath string `json:"hdfs_path,omitempty"`
}

// FileStream is an opened attachment ready for streaming to the client.
// Size is zero when the backing tier does not report a length up front.
type FileStream struct {
	Content   io.ReadCloser
	Filename  string
	MediaType string
	Size      int64
}

// WasteListResult is the service-level DTO for paginated records.
type WasteListResult struct {
	Items []model.WasteRecord `json:"data"`
	Total int                 `json:"total"`
}

// WasteService defines the use cases for geotagged waste reports and their
// two-tier file persistence.
type WasteService interface {
	// Create persists the metadata record, then attempts to place the
	// attached file (if any) in the distributed store. A distributed-store
	// failure never fails the request: the bytes are kept in the local
	// fallback cache and reported via CreateResult.UploadError.
	Create(ctx context.Context, in CreateInput) (*CreateResult, error)

	// List returns records using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*WasteListResult, error)

	// Get returns a single record by its ID.
	Get(ctx context.Context, id int64) (*model.WasteRecord, error)

	// Update applies a partial metadata update and returns the updated record.
	Update(ctx context.Context, id int64, in UpdateInput) (*model.WasteRecord, error)

	// Delete removes the metadata record, attempting best-effort cleanup of
	// whichever tier currently holds the file.
	Delete(ctx context.Context, id int64) error

	// Retry re-attempts the distributed upload of a record's cached file.
	// Idempotent and re-invokable: a failure leaves the record unchanged, and
	// a record with nothing to retry yields success=false with an explanation.
	Retry(ctx context.Context, id int64) (*RetryResult, error)

	// OpenFile streams the record's attached file from whichever tier holds
	// it, preferring the local cache. Returns ErrNoFile if no file is attached.
	OpenFile(ctx context.Context, id int64) (*FileStream, error)
}

// wasteService is a concrete implementation of WasteService.
type wasteService struct {
	store       storage.DistributedStore
	repo        repository.WasteRepository
	cache       *cache.Cache
	uploadsRoot string
	locks       *recordLocks
}

// NewWasteService constructs a new WasteService. uploadsRoot is the directory
// in the distributed store under which all record files are placed.
func NewWasteService(store storage.DistributedStore, repo repository.WasteRepository, c *cache.Cache, uploadsRoot string) WasteService {
	return &wasteService{
		store:       store,
		repo:        repo,
		cache:       c,
		uploadsRoot: uploadsRoot,
		locks:       newRecordLocks(),
	}
}

// remotePath derives the deterministic distributed-store target for a record's
// file: {uploads-root}/{record-id}_{basename(filename)}.
func (s *wasteService) remotePath(id int64, filename string) string {
	return path.Join(s.uploadsRoot, cache.FileName(id, filename))
}

// ensureUploadsRoot pre-creates the uploads directory, best effort. All errors
// are swallowed: "already exists" is the common case, and a genuinely broken
// cluster will surface on the write that follows.
func (s *wasteService) ensureUploadsRoot(ctx context.Context) {
	if _, err := s.store.Stat(ctx, s.uploadsRoot); err != nil {
		_ = s.store.MkdirAll(ctx, s.uploadsRoot)
	}
}

func (s *wasteService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	status := in.Status
	if status == "" {
		status = "new"
	}
	rec, err := s.repo.Create(ctx, &model.WasteRecord{
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		Name:        in.Name,
		CustomID:    in.CustomID,
		Quantity:    in.Quantity,
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if in.File == nil {
		return &CreateResult{Record: rec}, nil
	}

	unlock := s.locks.lock(rec.ID)
	defer unlock()

	uploadErr, err := s.uploadFile(ctx, rec, in.File)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Record: rec, UploadError: uploadErr}, nil
}

// uploadFile is the upload coordinator: stage the bytes locally, try the
// distributed store, and on failure demote the staged copy into the fallback
// cache. The staging file is removed on every exit path. rec is updated in
// place to reflect the resulting tier. The returned string is the diagnostic
// for a tier demotion; the error return is reserved for metadata failures.
func (s *wasteService) uploadFile(ctx context.Context, rec *model.WasteRecord, file *FileUpload) (string, error) {
	staged, _, err := s.cache.Stage(file.Reader)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	defer s.cache.Discard(staged)

	rec.UploadStatus = model.UploadStatusPending

	s.ensureUploadsRoot(ctx)

	remote := s.remotePath(rec.ID, file.Filename)
	werr := s.writeFromLocal(ctx, remote, staged)
	if werr == nil {
		if err := s.repo.SetTier(ctx, rec.ID, repository.TierUpdate{
			RemotePath:   &remote,
			UploadStatus: model.UploadStatusUploaded,
		}); err != nil {
			return "", fmt.Errorf("record uploaded file: %w", err)
		}
		rec.RemotePath = &remote
		rec.LocalPath = nil
		rec.UploadStatus = model.UploadStatusUploaded
		uploadsTotal.WithLabelValues(tierRemote).Inc()
		return "", nil
	}

	// Losing the bytes is worse than a metadata row with a recorded anomaly,
	// so the request still succeeds; the demotion is reported as a diagnostic.
	diag := fmt.Sprintf("HDFS upload failed: %v", werr)
	tier := repository.TierUpdate{UploadStatus: model.UploadStatusFailed}
	local, lerr := s.cache.Promote(staged, rec.ID, file.Filename)
	if lerr == nil {
		tier.LocalPath = &local
	} else {
		// Cache demotion failed too. Record the failed status anyway so the
		// anomaly is visible, mirroring the best-effort original behavior.
		diag = fmt.Sprintf("%s; local fallback failed: %v", diag, lerr)
	}
	if err := s.repo.SetTier(ctx, rec.ID, tier); err != nil {
		return "", fmt.Errorf("record failed upload: %w", err)
	}
	rec.RemotePath = nil
	rec.LocalPath = tier.LocalPath
	rec.UploadStatus = model.UploadStatusFailed
	uploadsTotal.WithLabelValues(tierLocalFallback).Inc()
	return diag, nil
}

// writeFromLocal streams a local file into the distributed store.
func (s *wasteService) writeFromLocal(ctx context.Context, remote, localPath string) error {
	f, _, err := s.cache.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.store.Write(ctx, remote, f)
	return err
}

// List returns paginated records without exposing repository types.
func (s *wasteService) List(ctx context.Context, limit, offset int) (*WasteListResult, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &WasteListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a record by ID.
func (s *wasteService) Get(ctx context.Context, id int64) (*model.WasteRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Update applies a partial metadata update. Tier fields are not reachable
// from here; only the coordinator and the reconciler mutate them.
func (s *wasteService) Update(ctx context.Context, id int64, in UpdateInput) (*model.WasteRecord, error) {
	rec, err := s.repo.Update(ctx, id, repository.UpdateFields{
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		Name:        in.Name,
		CustomID:    in.CustomID,
		Quantity:    in.Quantity,
		Status:      in.Status,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes the metadata row. File cleanup in either tier is best
// effort: a failure is logged and counted, never surfaced, so no orphaned
// metadata is left behind referencing nothing.
func (s *wasteService) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if rec.RemotePath != nil {
		if err := s.store.Delete(ctx, *rec.RemotePath); err != nil {
			tierCleanupFailures.WithLabelValues(tierRemote).Inc()
			logCleanupFailure(id, *rec.RemotePath, err)
		}
	}
	if rec.LocalPath != nil {
		if err := s.cache.Remove(*rec.LocalPath); err != nil {
			tierCleanupFailures.WithLabelValues(tierLocalFallback).Inc()
			logCleanupFailure(id, *rec.LocalPath, err)
		}
	}

	return s.repo.Delete(ctx, id)
}

// Retry is the retry reconciler: promote a previously failed upload from the
// local cache into the distributed store.
func (s *wasteService) Retry(ctx context.Context, id int64) (*RetryResult, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if rec.LocalPath == nil || !s.cache.Exists(*rec.LocalPath) {
		retriesTotal.WithLabelValues(retryNoop).Inc()
		return &RetryResult{Success: false, Message: "No local file to retry"}, nil
	}

	s.ensureUploadsRoot(ctx)

	// The cached basename already carries the record-id prefix, so this is
	// the same target the original upload attempted.
	remote := path.Join(s.uploadsRoot, filepath.Base(*rec.LocalPath))
	if werr := s.writeFromLocal(ctx, remote, *rec.LocalPath); werr != nil {
		retriesTotal.WithLabelValues(retryFailed).Inc()
		return &RetryResult{Success: false, Message: fmt.Sprintf("Retry failed: %v", werr)}, nil
	}

	if err := s.repo.SetTier(ctx, id, repository.TierUpdate{
		RemotePath:   &remote,
		UploadStatus: model.UploadStatusUploaded,
	}); err != nil {
		return nil, fmt.Errorf("record promoted upload: %w", err)
	}

	// Metadata no longer references the cached copy; evicting it is best
	// effort and a leftover file is merely unreclaimed space.
	if err := s.cache.Remove(*rec.LocalPath); err != nil {
		tierCleanupFailures.WithLabelValues(tierLocalFallback).Inc()
		logCleanupFailure(id, *rec.LocalPath, err)
	}

	retriesTotal.WithLabelValues(retryPromoted).Inc()
	return &RetryResult{Success: true, Message: "Uploaded to HDFS", RemotePath: remote}, nil
}

// OpenFile is the unified reader: it streams from the local cache when a
// cached copy exists (available even while the distributed store is down),
// otherwise from the distributed store.
func (s *wasteService) OpenFile(ctx context.Context, id int64) (*FileStream, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if rec.LocalPath != nil && s.cache.Exists(*rec.LocalPath) {
		rc, size, err := s.cache.Open(*rec.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("read cached file: %w", err)
		}
		downloadsTotal.WithLabelValues(tierLocalFallback).Inc()
		name := filepath.Base(*rec.LocalPath)
		return &FileStream{Content: rc, Filename: name, MediaType: mediaType(name), Size: size}, nil
	}

	if rec.RemotePath != nil {
		rc, err := s.store.Read(ctx, *rec.RemotePath)
		if err != nil {
			return nil, fmt.Errorf("read from distributed store: %w", err)
		}
		downloadsTotal.WithLabelValues(tierRemote).Inc()
		name := path.Base(*rec.RemotePath)
		return &FileStream{Content: rc, Filename: name, MediaType: mediaType(name)}, nil
	}

	return nil, ErrNoFile
}

// mediaType infers a media type from the filename extension.
func mediaType(filename string) string {
	if mt := mime.TypeByExtension(filepath.Ext(filename)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
