package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/leca/doorguardian/internal/database"
	"github.com/leca/doorguardian/internal/model"
)

// HistoryParams are the query parameters for a history listing. Page and
// PerPage are validated by the caller (page >= 1, 1 <= per_page <= 100);
// out-of-range values here simply land on an empty page. DateFrom/DateTo
// are inclusive bounds compared against the stored timestamp text.
type HistoryParams struct {
	Page      int
	PerPage   int
	SortBy    string // "date" or "created_at"
	SortOrder string // "asc" or "desc"
	Access    *bool
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AccessQuery lists access history. It is constructed over the read-only
// slice of the record store and performs no writes.
type AccessQuery struct {
	db database.Reader
}

func NewAccessQuery(db database.Reader) *AccessQuery {
	return &AccessQuery{db: db}
}

// History composes filter, sort and pagination over the full joined
// record set. Filtering and sorting operate on the stored RFC3339 text
// representation of timestamps, whose lexical order is chronological.
// Rows that fail to decode into the join view are dropped from the page;
// the pagination total still reflects the pre-decode filtered count.
func (q *AccessQuery) History(ctx context.Context, p HistoryParams) ([]*model.AccessWithImage, *model.PageInfo, error) {
	switch p.SortBy {
	case "date", "created_at":
	default:
		return nil, nil, ErrBadSortField
	}
	switch p.SortOrder {
	case "asc", "desc":
	default:
		return nil, nil, ErrBadSortOrder
	}

	rows, err := q.db.ListAccessRows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch access history: %w", err)
	}

	var filtered []*database.AccessRow
	for _, r := range rows {
		if p.Access != nil && r.Access != *p.Access {
			continue
		}
		if p.DateFrom != nil && r.Date < database.FormatTime(*p.DateFrom) {
			continue
		}
		if p.DateTo != nil && r.Date > database.FormatTime(*p.DateTo) {
			continue
		}
		filtered = append(filtered, r)
	}

	key := func(r *database.AccessRow) string { return r.Date }
	if p.SortBy == "created_at" {
		key = func(r *database.AccessRow) string { return r.CreatedAt }
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if p.SortOrder == "desc" {
			return key(filtered[i]) > key(filtered[j])
		}
		return key(filtered[i]) < key(filtered[j])
	})

	// An out-of-range page yields an empty result, never an error.
	total := len(filtered)
	offset := (p.Page - 1) * p.PerPage
	if offset < 0 || offset > total {
		offset = total
	}
	end := offset + p.PerPage
	if end > total {
		end = total
	}

	records := make([]*model.AccessWithImage, 0, end-offset)
	skipped := 0
	for _, r := range filtered[offset:end] {
		rec, err := decodeAccessRow(r)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		slog.Warn("dropped malformed access rows from history page", "skipped", skipped, "page", p.Page)
	}

	return records, pageInfo(p.Page, p.PerPage, total), nil
}

// pageInfo derives the pagination metadata for a filtered total. A zero
// total still counts as one page.
func pageInfo(page, perPage, total int) *model.PageInfo {
	pages := 1
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}

	info := &model.PageInfo{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
	if info.HasNext {
		n := page + 1
		info.NextNum = &n
	}
	if info.HasPrev {
		n := page - 1
		info.PrevNum = &n
	}
	return info
}

// decodeAccessRow materializes a raw row into the join view. A row whose
// stored shape cannot be decoded is reported as an error so the caller
// can drop it.
func decodeAccessRow(r *database.AccessRow) (*model.AccessWithImage, error) {
	date, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return nil, fmt.Errorf("bad date: %w", err)
	}
	created, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}

	rec := &model.AccessWithImage{
		Access: model.Access{
			ID:        r.ID,
			Access:    r.Access,
			Date:      date,
			ImageID:   r.ImageID,
			CreatedAt: created,
			UpdatedAt: updated,
		},
	}

	if r.Image != nil {
		img, err := decodeImageRow(r.Image)
		if err != nil {
			return nil, err
		}
		rec.Image = img
	}
	return rec, nil
}

func decodeImageRow(r *database.ImageRow) (*model.Image, error) {
	if r.FileSize <= 0 {
		return nil, fmt.Errorf("bad file_size: %d", r.FileSize)
	}
	created, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad image created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad image updated_at: %w", err)
	}
	return &model.Image{
		ID:               r.ID,
		Filename:         r.Filename,
		OriginalFilename: r.OriginalFilename,
		FilePath:         r.FilePath,
		FileSize:         r.FileSize,
		MimeType:         r.MimeType,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}
