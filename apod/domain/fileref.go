package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

const defaultExtension = ".jpg"

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsSupportedExtension reports whether ext (with leading dot) is a cacheable image type.
func IsSupportedExtension(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// NormalizeFileRef appends ".jpg" to names without an extension and rejects
// names whose extension is not a supported image type. Case is preserved.
func NormalizeFileRef(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidFileRef
	}

	ext := filepath.Ext(name)
	if ext == "" {
		return name + defaultExtension, nil
	}
	if !IsSupportedExtension(ext) {
		return "", ErrUnsupportedExtension
	}
	return name, nil
}

// FileRefFromTitle derives the cache filename for a catalog entry.
// A title that already ends in a supported extension is kept as is; otherwise
// the extension comes from the remote URL when it is a supported type.
func FileRefFromTitle(title, remoteURL string) string {
	name := sanitizeTitle(title)
	if IsSupportedExtension(filepath.Ext(name)) {
		return name
	}
	return name + extensionFromURL(remoteURL)
}

func extensionFromURL(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return defaultExtension
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if IsSupportedExtension(ext) {
		return ext
	}
	return defaultExtension
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r) || unicode.IsControl(r):
			b.WriteRune('-')
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	name := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	if name == "" {
		return "apod"
	}
	return name
}
