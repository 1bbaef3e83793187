package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/leca/doorguardian/internal/config"
	"github.com/leca/doorguardian/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore records calls and can be told to fail.
type fakeBlobStore struct {
	blobs       map[string][]byte
	putCalls    int
	removeCalls int
	failPut     bool
	failRemove  bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	f.putCalls++
	if f.failPut {
		return "", fmt.Errorf("blob store unavailable")
	}
	f.blobs[path] = data
	return path, nil
}

func (f *fakeBlobStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, paths []string) error {
	f.removeCalls++
	if f.failRemove {
		return fmt.Errorf("blob store unavailable")
	}
	for _, p := range paths {
		delete(f.blobs, p)
	}
	return nil
}

func (f *fakeBlobStore) PublicURL(path string) string {
	return "http://blobs.test/" + path
}

func testConfig() *config.Config {
	return &config.Config{
		UploadFolder:      "access_images",
		MaxFileSize:       10 << 20,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
		AllowedMIMETypes:  []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

func newLifecycle(t *testing.T) (*AccessLifecycle, *database.SQLiteDB, *fakeBlobStore) {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs := newFakeBlobStore()
	return NewAccessLifecycle(db, blobs, testConfig()), db, blobs
}

func validJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func validPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegister_NoPhoto(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	date := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	rec, err := lc.Register(ctx, RegisterInput{Access: true, Date: &date})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Access.Access)
	assert.Equal(t, date, rec.Date)
	assert.Nil(t, rec.ImageID)
	assert.Nil(t, rec.Image)
	assert.Equal(t, 0, blobs.putCalls)

	row, err := db.GetAccessRow(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestRegister_DateDefaultsToNow(t *testing.T) {
	lc, _, _ := newLifecycle(t)

	before := time.Now().UTC().Add(-time.Second)
	rec, err := lc.Register(context.Background(), RegisterInput{Access: false})
	require.NoError(t, err)
	after := time.Now().UTC().Add(time.Second)

	assert.False(t, rec.Date.Before(before.Truncate(time.Second)))
	assert.False(t, rec.Date.After(after))
}

func TestRegister_WithPhoto(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	data := validJPEG(t)
	rec, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "person.jpg", ContentType: "image/jpeg", Data: data},
	})
	require.NoError(t, err)

	require.NotNil(t, rec.ImageID)
	require.NotNil(t, rec.Image)
	assert.Equal(t, *rec.ImageID, rec.Image.ID)
	assert.Equal(t, "image/jpeg", rec.Image.MimeType)
	assert.Equal(t, "person.jpg", rec.Image.OriginalFilename)
	assert.Equal(t, int64(len(data)), rec.Image.FileSize)
	assert.NotEqual(t, "person.jpg", rec.Image.Filename)
	assert.Equal(t, "access_images/"+rec.Image.Filename, rec.Image.FilePath)

	// The blob is stored under the image's file_path.
	assert.Equal(t, 1, blobs.putCalls)
	assert.Contains(t, blobs.blobs, rec.Image.FilePath)

	// Join view comes back on re-fetch too.
	row, err := db.GetAccessRow(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, row.Image)
}

func TestRegister_SniffedMIMEWhenDeclaredGeneric(t *testing.T) {
	lc, _, _ := newLifecycle(t)

	rec, err := lc.Register(context.Background(), RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "upload.png", ContentType: "text/plain", Data: validPNG(t)},
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Image)
	assert.Equal(t, "image/png", rec.Image.MimeType)
}

func TestRegister_BadExtensionRejectedBeforeAnyWrite(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	_, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "evil.exe", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	assert.ErrorIs(t, err, ErrBadExtension)

	// No adapter mutation of any kind.
	assert.Equal(t, 0, blobs.putCalls)
	rows, err := db.ListAccessRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegister_BadMIMERejected(t *testing.T) {
	lc, _, blobs := newLifecycle(t)

	// Declared type is informative but not on the allow-list.
	_, err := lc.Register(context.Background(), RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "doc.jpg", ContentType: "application/pdf", Data: validJPEG(t)},
	})
	assert.ErrorIs(t, err, ErrBadMIME)
	assert.Equal(t, 0, blobs.putCalls)
}

func TestRegister_TooLargeRejected(t *testing.T) {
	lc, _, blobs := newLifecycle(t)
	lc.cfg.MaxFileSize = 16

	_, err := lc.Register(context.Background(), RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "big.jpg", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, blobs.putCalls)
}

func TestRegister_CorruptContentRejected(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	// Extension and declared MIME pass; the body does not decode.
	_, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("garbage bytes")},
	})
	assert.ErrorIs(t, err, ErrCorruptImage)

	assert.Equal(t, 0, blobs.putCalls)
	rows, err := db.ListAccessRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegister_BlobUploadFailurePropagates(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	blobs.failPut = true
	ctx := context.Background()

	_, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "p.jpg", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	require.Error(t, err)
	assert.False(t, IsValidation(err))

	// Nothing was inserted after the failed upload.
	rows, err := db.ListAccessRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDelete_UnknownIDIsFalseAndIdempotent(t *testing.T) {
	lc, _, _ := newLifecycle(t)
	ctx := context.Background()

	ok, err := lc.Delete(ctx, "no-such-id")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lc.Delete(ctx, "no-such-id")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_NoImage(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	rec, err := lc.Register(ctx, RegisterInput{Access: true})
	require.NoError(t, err)

	ok, err := lc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, blobs.removeCalls)

	row, err := db.GetAccessRow(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDelete_CascadesToImageAndBlob(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	rec, err := lc.Register(ctx, RegisterInput{
		Access: false,
		Photo:  &Photo{Filename: "visitor.jpg", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Image)

	ok, err := lc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Blob, image row and access row are all gone.
	assert.NotContains(t, blobs.blobs, rec.Image.FilePath)
	n, err := db.DeleteImage(ctx, rec.Image.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	row, err := db.GetAccessRow(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDelete_BlobFailureIsSwallowed(t *testing.T) {
	lc, db, blobs := newLifecycle(t)
	ctx := context.Background()

	rec, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "guard.jpg", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	require.NoError(t, err)

	blobs.failRemove = true
	ok, err := lc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Rows are removed even though the blob delete failed.
	row, err := db.GetAccessRow(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
	n, err := db.DeleteImage(ctx, rec.Image.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRegisterThenHistoryRoundTrip(t *testing.T) {
	lc, db, _ := newLifecycle(t)
	ctx := context.Background()

	rec, err := lc.Register(ctx, RegisterInput{
		Access: true,
		Photo:  &Photo{Filename: "door.jpg", ContentType: "image/jpeg", Data: validJPEG(t)},
	})
	require.NoError(t, err)

	q := NewAccessQuery(db)
	records, info, err := q.History(ctx, HistoryParams{Page: 1, PerPage: 1, SortBy: "date", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, info.Total)
	assert.Equal(t, rec.ID, records[0].ID)
	require.NotNil(t, records[0].Image)
	assert.Equal(t, "image/jpeg", records[0].Image.MimeType)
}
