package hashutil

// ContentHashes holds both digests computed for a piece of content.
// SHA-256 remains the primary key used in on-disk paths (for
// compatibility with legacy records); BLAKE3 is carried alongside as a
// faster secondary digest used for in-memory comparisons.
type ContentHashes struct {
	SHA256 string
	BLAKE3 string
}

// ComputeContentHashes hashes data with both algorithms in one pass.
func ComputeContentHashes(data []byte) ContentHashes {
	sha, _ := HashBytes(data, HashAlgoSHA256)
	b3, _ := HashBytes(data, HashAlgoBLAKE3)
	return ContentHashes{SHA256: sha, BLAKE3: b3}
}

// Equal reports whether two hash pairs identify the same content. Both
// digests must match; a mismatch in either is treated as different
// content, since distinct content_hash/content_hash_blake3 pairs
// indicate either corruption or a hash collision worth treating as new.
func (c ContentHashes) Equal(other ContentHashes) bool {
	return c.SHA256 == other.SHA256 && c.BLAKE3 == other.BLAKE3
}
