package database

import (
	"context"

	"github.com/leca/doorguardian/internal/model"
)

// AccessRow is the raw shape of an access row as returned by queries.
// Timestamps are kept in their stored RFC3339 text form so callers can
// compare and sort on the stored representation; Image is the joined
// images row, or nil when the record has no photo.
type AccessRow struct {
	ID        string
	Access    bool
	Date      string
	ImageID   *string
	CreatedAt string
	UpdatedAt string
	Image     *ImageRow
}

// ImageRow is the raw shape of an images row.
type ImageRow struct {
	ID               string
	Filename         string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	MimeType         string
	CreatedAt        string
	UpdatedAt        string
}

// Reader is the read-only slice of the record store. The history query
// engine is constructed over a Reader and nothing more.
type Reader interface {
	// ListAccessRows returns every access row joined with its image.
	ListAccessRows(ctx context.Context) ([]*AccessRow, error)

	// GetAccessRow returns one access row joined with its image, or
	// (nil, nil) when no row has that id.
	GetAccessRow(ctx context.Context, id string) (*AccessRow, error)
}

// Store is the full record store used by the access lifecycle manager.
type Store interface {
	Reader

	InsertAccess(ctx context.Context, a *model.Access) error
	InsertImage(ctx context.Context, img *model.Image) error

	// DeleteAccess and DeleteImage return the number of affected rows;
	// zero means the row did not exist.
	DeleteAccess(ctx context.Context, id string) (int64, error)
	DeleteImage(ctx context.Context, id string) (int64, error)

	UpdateAccess(ctx context.Context, a *model.Access) error
	RenameImage(ctx context.Context, id, filename, originalFilename string) error

	Close() error
}
