package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leca/doorguardian/internal/config"
	"github.com/leca/doorguardian/internal/database"
	"github.com/leca/doorguardian/internal/imagefile"
	"github.com/leca/doorguardian/internal/model"
	"github.com/leca/doorguardian/internal/storage"
)

// Photo is an uploaded image as received from the HTTP layer.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RegisterInput describes one access event to record. Date defaults to
// the current time when nil; Photo is optional.
type RegisterInput struct {
	Access bool
	Date   *time.Time
	Photo  *Photo
}

// AccessLifecycle orchestrates the create and cascade-delete workflows
// for access records. It is constructed over the full record store and
// the blob store.
type AccessLifecycle struct {
	db    database.Store
	blobs storage.BlobStore
	cfg   *config.Config
}

func NewAccessLifecycle(db database.Store, blobs storage.BlobStore, cfg *config.Config) *AccessLifecycle {
	return &AccessLifecycle{db: db, blobs: blobs, cfg: cfg}
}

// Register validates and persists one access event. With a photo attached
// the sequence is: validate everything, upload the blob, insert the image
// row, insert the access row, then re-fetch the joined view. Validation
// failures abort before any write. A failure after the blob upload can
// leave an orphaned blob or image row behind; no rollback is attempted.
func (l *AccessLifecycle) Register(ctx context.Context, in RegisterInput) (*model.AccessWithImage, error) {
	now := time.Now().UTC()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var imageID *string
	if in.Photo != nil && in.Photo.Filename != "" {
		img, err := l.ingestPhoto(ctx, in.Photo, now)
		if err != nil {
			return nil, err
		}
		imageID = &img.ID
	}

	access := &model.Access{
		ID:        uuid.New().String(),
		Access:    in.Access,
		Date:      date,
		ImageID:   imageID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.db.InsertAccess(ctx, access); err != nil {
		return nil, fmt.Errorf("create access record: %w", err)
	}

	row, err := l.db.GetAccessRow(ctx, access.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch created access record: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("created access record %s not found", access.ID)
	}
	return decodeAccessRow(row)
}

// ingestPhoto runs the validation pipeline, uploads the blob and inserts
// the image row.
func (l *AccessLifecycle) ingestPhoto(ctx context.Context, photo *Photo, now time.Time) (*model.Image, error) {
	if !imagefile.AllowedExtension(photo.Filename, l.cfg.AllowedExtensions) {
		return nil, fmt.Errorf("%w: %s", ErrBadExtension, photo.Filename)
	}

	mimeType := imagefile.ResolveMIME(photo.ContentType, photo.Filename, photo.Data)
	if !imagefile.AllowedMIME(mimeType, l.cfg.AllowedMIMETypes) {
		return nil, fmt.Errorf("%w: %s", ErrBadMIME, mimeType)
	}
	if int64(len(photo.Data)) > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(photo.Data))
	}
	if err := imagefile.ValidateContent(photo.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	filename := imagefile.UniqueName(photo.Filename)
	path := l.cfg.UploadFolder + "/" + filename

	if _, err := l.blobs.Put(ctx, path, photo.Data, mimeType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	slog.Info("uploaded access photo", "path", path, "url", l.blobs.PublicURL(path))

	img := &model.Image{
		ID:               uuid.New().String(),
		Filename:         filename,
		OriginalFilename: photo.Filename,
		FilePath:         path,
		FileSize:         int64(len(photo.Data)),
		MimeType:         mimeType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.db.InsertImage(ctx, img); err != nil {
		return nil, fmt.Errorf("create image record: %w", err)
	}
	return img, nil
}

// Delete removes an access record and cascades to its image and blob.
// It returns false when no record has that id. The blob and image row are
// removed before the access row, so a crash mid-sequence leaves garbage
// rather than an access record pointing at deleted dependents. A blob
// delete failure is logged and swallowed; an image row delete failure
// propagates.
func (l *AccessLifecycle) Delete(ctx context.Context, id string) (bool, error) {
	row, err := l.db.GetAccessRow(ctx, id)
	if err != nil {
		return false, fmt.Errorf("fetch access record: %w", err)
	}
	if row == nil {
		return false, nil
	}

	if row.Image != nil {
		if err := l.blobs.Remove(ctx, []string{row.Image.FilePath}); err != nil {
			slog.Warn("could not delete image blob", "path", row.Image.FilePath, "error", err)
		}
		if _, err := l.db.DeleteImage(ctx, row.Image.ID); err != nil {
			return false, fmt.Errorf("delete image record: %w", err)
		}
	}

	n, err := l.db.DeleteAccess(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete access record: %w", err)
	}
	return n > 0, nil
}
