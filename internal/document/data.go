package document

import "time"

// Status is a Document's current processing stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDownloaded Status = "downloaded"
	StatusOCRComplete Status = "ocr_complete"
	StatusIndexed    Status = "indexed"
	StatusFailed     Status = "failed"
)

// DocumentVersion is one content snapshot of a Document, identified by its
// dual content hash. New versions record in StoredPath the relative path
// the content store wrote (or deduplicated) them to; only when StoredPath
// is empty is the path computed at runtime (internal/contentstore) from
// the hash, original filename, and DedupIndex.
type DocumentVersion struct {
	ID                  int64
	ContentHash         string
	ContentHashBLAKE3   string
	StoredPath          string
	FileSize            int64
	MimeType            string
	AcquiredAt          time.Time
	SourceURL           string
	OriginalFilename    string
	ServerDate          *time.Time
	PageCount           *int
	ArchiveSnapshotID   *int
	EarliestArchivedAt  *time.Time
	DedupIndex          int
}

// Document is a FOIA document with its full version history, newest
// version first.
type Document struct {
	ID              string
	SourceID        string
	Title           string
	SourceURL       string
	Versions        []DocumentVersion
	ExtractedText   string
	Synopsis        string
	Tags            []string
	Status          Status
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DiscoveryMethod string
}

// CurrentVersion returns the most recent version, or nil if the document
// has none (should not occur for a persisted document).
func (d *Document) CurrentVersion() *DocumentVersion {
	if len(d.Versions) == 0 {
		return nil
	}
	return &d.Versions[0]
}

// AddVersion prepends version to Versions unless its content hashes match
// the current version, in which case it is a no-op and AddVersion returns
// false. Both SHA-256 and BLAKE3 are compared when both sides have a
// BLAKE3 hash; if either side lacks one, the comparison falls back to
// SHA-256 alone. Mirrors Document::add_version from
// crates/foia/src/models/document.rs.
func (d *Document) AddVersion(version DocumentVersion) bool {
	if current := d.CurrentVersion(); current != nil {
		shaMatch := current.ContentHash == version.ContentHash
		blakeMatch := true
		if current.ContentHashBLAKE3 != "" && version.ContentHashBLAKE3 != "" {
			blakeMatch = current.ContentHashBLAKE3 == version.ContentHashBLAKE3
		}
		if shaMatch && blakeMatch {
			return false
		}
	}

	d.Versions = append([]DocumentVersion{version}, d.Versions...)
	d.UpdatedAt = time.Now().UTC()
	return true
}
