package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/leca/doorguardian/internal/model"
	_ "modernc.org/sqlite"
)

// timeLayout is the stored timestamp format: RFC3339 in UTC at second
// precision. The fixed width keeps lexical order identical to
// chronological order, which the history engine relies on.
const timeLayout = time.RFC3339

// SQLiteDB implements Store backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// Compile-time check that SQLiteDB implements Store.
var _ Store = (*SQLiteDB)(nil)

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	} else if !strings.Contains(dsn, "_journal_mode") {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// FormatTime renders t in the stored timestamp representation.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const accessJoinSelect = `
	SELECT a.id, a.access, a.date, a.image_id, a.created_at, a.updated_at,
	       i.id, i.filename, i.original_filename, i.file_path, i.file_size,
	       i.mime_type, i.created_at, i.updated_at
	FROM access a
	LEFT JOIN images i ON a.image_id = i.id`

func (s *SQLiteDB) ListAccessRows(ctx context.Context) ([]*AccessRow, error) {
	rows, err := s.db.QueryContext(ctx, accessJoinSelect+` ORDER BY a.created_at ASC, a.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list access rows: %w", err)
	}
	defer rows.Close()

	var out []*AccessRow
	for rows.Next() {
		row, err := scanAccessRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) GetAccessRow(ctx context.Context, id string) (*AccessRow, error) {
	row := s.db.QueryRowContext(ctx, accessJoinSelect+` WHERE a.id = ?`, id)
	out, err := scanAccessRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteDB) InsertAccess(ctx context.Context, a *model.Access) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO access (id, access, date, image_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, boolToInt(a.Access), FormatTime(a.Date), a.ImageID,
		FormatTime(a.CreatedAt), FormatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert access: %w", err)
	}
	return checkRowsAffected(res, "access row not inserted")
}

func (s *SQLiteDB) InsertImage(ctx context.Context, img *model.Image) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, filename, original_filename, file_path, file_size, mime_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.Filename, img.OriginalFilename, img.FilePath, img.FileSize,
		img.MimeType, FormatTime(img.CreatedAt), FormatTime(img.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return checkRowsAffected(res, "image row not inserted")
}

func (s *SQLiteDB) DeleteAccess(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete access: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) DeleteImage(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete image: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) UpdateAccess(ctx context.Context, a *model.Access) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE access SET access = ?, date = ?, image_id = ?, updated_at = ?
		WHERE id = ?`,
		boolToInt(a.Access), FormatTime(a.Date), a.ImageID,
		FormatTime(time.Now()), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update access: %w", err)
	}
	return checkRowsAffected(res, "access record not found")
}

func (s *SQLiteDB) RenameImage(ctx context.Context, id, filename, originalFilename string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET filename = ?, original_filename = ?, updated_at = ?
		WHERE id = ?`,
		filename, originalFilename, FormatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("rename image: %w", err)
	}
	return checkRowsAffected(res, "image not found")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanAccessRow(row scannable) (*AccessRow, error) {
	a := &AccessRow{}
	var accessInt int
	var imageID sql.NullString
	var imgID, imgFilename, imgOriginal, imgPath, imgMime, imgCreated, imgUpdated sql.NullString
	var imgSize sql.NullInt64

	err := row.Scan(&a.ID, &accessInt, &a.Date, &imageID, &a.CreatedAt, &a.UpdatedAt,
		&imgID, &imgFilename, &imgOriginal, &imgPath, &imgSize, &imgMime, &imgCreated, &imgUpdated)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan access row: %w", err)
	}

	a.Access = accessInt != 0
	if imageID.Valid {
		a.ImageID = &imageID.String
	}
	if imgID.Valid {
		a.Image = &ImageRow{
			ID:               imgID.String,
			Filename:         imgFilename.String,
			OriginalFilename: imgOriginal.String,
			FilePath:         imgPath.String,
			FileSize:         imgSize.Int64,
			MimeType:         imgMime.String,
			CreatedAt:        imgCreated.String,
			UpdatedAt:        imgUpdated.String,
		}
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s", msg)
	}
	return nil
}
