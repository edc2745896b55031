package contentstore

import (
	"path/filepath"
	"strings"

	"github.com/monokrome/foiacquire-sub003/pkg/fileutil"
	"github.com/monokrome/foiacquire-sub003/pkg/hashutil"
)

// PathInput carries everything ComputeStoragePath needs to derive a
// deterministic relative path for a piece of content, grounded in
// compute_storage_path from crates/foia/src/models/document.rs.
type PathInput struct {
	Hashes           hashutil.ContentHashes
	OriginalFilename string
	SourceURL        string
	Title            string
	MimeType         string
	DedupIndex       int
}

// ComputeStoragePath derives the deterministic relative storage path for a
// version: directory is the first 2+DedupIndex hex characters of the
// SHA-256 hash, filename is sanitize(basename)-sha256[:8].ext. Only the
// directory prefix grows with DedupIndex; the filename's hash segment is
// always the first 8 hex characters of the SHA-256, regardless of
// DedupIndex.
func ComputeStoragePath(in PathInput) string {
	basename, extension := basenameAndExtension(in)

	sanitized := fileutil.SanitizeFilename(basename)
	depth := 2 + in.DedupIndex
	hash := in.Hashes.SHA256
	if depth > len(hash) {
		depth = len(hash)
	}
	prefix := hash[:depth]

	shortHash := hash
	if len(shortHash) > 8 {
		shortHash = shortHash[:8]
	}
	filename := sanitized + "-" + shortHash + "." + extension

	return filepath.Join(prefix, filename)
}

func basenameAndExtension(in PathInput) (basename, extension string) {
	if in.OriginalFilename != "" {
		dot := strings.LastIndexByte(in.OriginalFilename, '.')
		if dot > 0 {
			base := in.OriginalFilename[:dot]
			ext := in.OriginalFilename[dot+1:]
			if base != "" && len(ext) <= 5 && isAlphanumeric(ext) {
				return base, strings.ToLower(ext)
			}
			return fileutil.ExtractFilenameParts(in.SourceURL, in.MimeType)
		}
		return in.OriginalFilename, fileutil.MimeToExtension(in.MimeType)
	}
	return fileutil.ExtractFilenameParts(in.SourceURL, in.MimeType)
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

// ResolvePath resolves a version's absolute on-disk path. StoredPath
// carries one of three legacy states: an absolute path (its last two
// components are re-rooted under documentsDir), a relative path (joined
// as-is with documentsDir), or empty (the deterministic path is computed
// from in and joined with documentsDir). Mirrors DocumentVersion::resolve_path.
func ResolvePath(documentsDir, storedPath string, in PathInput) string {
	switch {
	case storedPath == "":
		return filepath.Join(documentsDir, ComputeStoragePath(in))
	case filepath.IsAbs(storedPath):
		dir := filepath.Base(filepath.Dir(storedPath))
		file := filepath.Base(storedPath)
		if dir == "." || dir == string(filepath.Separator) {
			return filepath.Join(documentsDir, file)
		}
		return filepath.Join(documentsDir, dir, file)
	default:
		return filepath.Join(documentsDir, storedPath)
	}
}
