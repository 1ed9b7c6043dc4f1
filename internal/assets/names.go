package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// hashNameLen is the number of hex digits of the URL digest used as the
// local filename stem.
const hashNameLen = 16

// fallbackExtension is used when neither the content type nor the URL gives
// a usable hint.
const fallbackExtension = "jpg"

// mimeExtensions maps image content types to file extensions.
var mimeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/svg+xml": "svg",
	"image/x-icon":  "ico",
}

// imageExtensions is the whitelist of extensions trusted when guessed from a
// URL path.
var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"svg":  true,
	"ico":  true,
}

// AllocateName derives a stable, collision-resistant local filename for a
// remote URL. The stem is a 16-hex-character SHA-256 prefix of the URL, so
// the same URL always maps to the same name across runs.
func AllocateName(rawURL, contentType string) string {
	digest := sha256.Sum256([]byte(rawURL))
	stem := hex.EncodeToString(digest[:])[:hashNameLen]

	return stem + "." + GuessExtension(contentType, rawURL)
}

// GuessExtension picks a file extension for a fetched resource. An explicit
// content type always wins; otherwise the URL's wx_fmt query hint, then a
// whitelisted path suffix, then the jpg fallback. Both URL-derived hints are
// article content, so only whitelisted values are trusted; anything else
// falls through.
func GuessExtension(contentType, rawURL string) string {
	if ext := extensionFromContentType(contentType); ext != "" {
		return ext
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallbackExtension
	}

	if hint := strings.ToLower(parsed.Query().Get("wx_fmt")); imageExtensions[hint] {
		return hint
	}

	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(parsed.Path)), "."); imageExtensions[ext] {
		return ext
	}

	return fallbackExtension
}

// extensionFromContentType resolves a MIME type (possibly carrying
// parameters) through the extension table.
func extensionFromContentType(contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	return mimeExtensions[mimeType]
}
