package service

import "errors"

// Validation failures surfaced to the caller before any write.
var (
	ErrBadExtension = errors.New("file extension not allowed")
	ErrBadMIME      = errors.New("file MIME type not allowed")
	ErrTooLarge     = errors.New("file too large")
	ErrCorruptImage = errors.New("invalid or corrupted image file")
	ErrBadSortField = errors.New("sort_by must be 'date' or 'created_at'")
	ErrBadSortOrder = errors.New("sort_order must be 'asc' or 'desc'")
)

// IsValidation reports whether err is one of the input-validation
// failures, as opposed to an upstream read/write failure.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrBadExtension, ErrBadMIME, ErrTooLarge, ErrCorruptImage,
		ErrBadSortField, ErrBadSortOrder,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
