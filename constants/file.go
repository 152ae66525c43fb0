package constants

import "strings"

// AllowedImageTypes holds the content types the image fetcher accepts.
var AllowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/tiff": {},
	"image/bmp":  {},
}

// IsImageContentType lowercases and strips parameters from a Content-Type
// header value before checking it against the allowlist.
func IsImageContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	_, ok := AllowedImageTypes[ct]
	return ok
}
