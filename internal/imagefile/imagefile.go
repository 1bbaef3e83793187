// Package imagefile holds the pure validation helpers applied to an
// uploaded photo before anything is written: extension and MIME
// allow-list checks, MIME resolution, full-decode content validation and
// unique name generation.
package imagefile

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp"
)

// FallbackMIME is the generic type used when nothing better can be resolved.
const FallbackMIME = "application/octet-stream"

// AllowedExtension reports whether filename carries an extension from the
// allow-list. A name without a dot is never allowed.
func AllowedExtension(filename string, allowed []string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// AllowedMIME reports whether mimeType is on the allow-list.
func AllowedMIME(mimeType string, allowed []string) bool {
	for _, a := range allowed {
		if mimeType == a {
			return true
		}
	}
	return false
}

// ResolveMIME resolves the upload's MIME type using a priority chain:
// the declared content type when it is informative, then a guess from the
// filename extension, then a sniff of the content's magic bytes, then the
// generic fallback.
func ResolveMIME(declared, filename string, data []byte) string {
	if declared != "" && declared != "text/plain" && declared != FallbackMIME {
		return declared
	}
	if ext := filepath.Ext(filename); ext != "" {
		if guessed := mime.TypeByExtension(strings.ToLower(ext)); guessed != "" {
			// TypeByExtension may append parameters ("; charset=...").
			if i := strings.Index(guessed, ";"); i >= 0 {
				guessed = guessed[:i]
			}
			return strings.TrimSpace(guessed)
		}
	}
	if sniffed := SniffMIME(data); sniffed != "" {
		return sniffed
	}
	return FallbackMIME
}

// SniffMIME inspects the raw bytes and returns the image MIME type:
// image/jpeg, image/png, image/gif, image/webp, or "" if unknown.
func SniffMIME(data []byte) string {
	// JPEG: starts with FF D8 FF
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: starts with 89 50 4E 47 0D 0A 1A 0A
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}
	// GIF: starts with GIF87a or GIF89a
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' {
		return "image/gif"
	}
	// WebP: starts with RIFF....WEBP
	if len(data) >= 12 && data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return "image/webp"
	}
	return ""
}

// ValidateContent attempts a full decode of data as a raster image and
// returns an error when the bytes are not a valid image.
func ValidateContent(data []byte) error {
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	return nil
}

// UniqueName generates a collision-resistant storage filename preserving
// the original's lower-cased extension. The original name's body is never
// reused.
func UniqueName(originalFilename string) string {
	if originalFilename == "" {
		return uuid.New().String() + ".jpg"
	}
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalFilename))
}
