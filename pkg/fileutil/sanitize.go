package fileutil

import (
	"path"
	"strings"
)

// SanitizeFilename strips characters that are unsafe across common
// filesystems and collapses the result to something stable enough to
// use as a path component. Unlike GetFileExtension this operates on a
// bare basename, not a full path.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.Trim(b.String(), "._")
	if sanitized == "" {
		return "untitled"
	}
	const maxLen = 120
	if len(sanitized) > maxLen {
		sanitized = sanitized[:maxLen]
	}
	return sanitized
}

// mimeExtensions maps common document MIME types to a file extension.
// Anything not listed falls back to "bin".
var mimeExtensions = map[string]string{
	"application/pdf":    "pdf",
	"text/html":           "html",
	"text/plain":          "txt",
	"text/csv":            "csv",
	"application/msword":  "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/zip":       "zip",
	"application/json":      "json",
	"application/xml":       "xml",
	"text/xml":              "xml",
	"image/jpeg":            "jpg",
	"image/png":             "png",
	"image/gif":             "gif",
	"image/tiff":            "tiff",
}

// MimeToExtension returns the conventional file extension for a MIME
// type, stripping any "; charset=..." parameters first. Unknown types
// fall back to "bin".
func MimeToExtension(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return "bin"
}

// ExtractFilenameParts derives a (basename, extension) pair from a URL
// and MIME type when no usable original filename was supplied. The URL's
// last path segment is preferred; it falls back to "document" when the
// URL has no meaningful segment (e.g. it ends in "/").
func ExtractFilenameParts(rawURL, mimeType string) (basename, extension string) {
	extension = MimeToExtension(mimeType)

	segment := rawURL
	if idx := strings.IndexAny(segment, "?#"); idx >= 0 {
		segment = segment[:idx]
	}
	segment = strings.TrimSuffix(segment, "/")
	segment = path.Base(segment)

	if segment == "" || segment == "." || segment == "/" {
		return "document", extension
	}

	if dot := strings.LastIndexByte(segment, '.'); dot > 0 {
		candidateExt := segment[dot+1:]
		if len(candidateExt) <= 5 && isAlphanumeric(candidateExt) {
			return segment[:dot], strings.ToLower(candidateExt)
		}
	}

	return segment, extension
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
