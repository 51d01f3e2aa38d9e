// Package thumbnail implements C4: the content-addressed thumbnail cache
// and its bounded generation pipeline.
package thumbnail

// Size is a (width, height) fit-inside-box target (spec.md §4.4.2).
type Size struct {
	Width  int
	Height int
}

// Record mirrors one row of the thumbnail_records table: three optional
// preview slots keyed by the owning file(s)' content SHA (spec.md §4.1,
// §4.4). A record may exist with any subset of slots populated.
type Record struct {
	SHA256 string
	Small  []byte
	Medium []byte
	Large  []byte
}

// Complete reports whether every slot is populated (spec.md §4.4.1's
// get_or_create completeness check).
func (r *Record) Complete() bool {
	return r != nil && len(r.Small) > 0 && len(r.Medium) > 0 && len(r.Large) > 0
}

// Slot returns the blob for a named size ("small", "medium", "large").
func (r *Record) Slot(size string) []byte {
	if r == nil {
		return nil
	}
	switch size {
	case "small":
		return r.Small
	case "medium":
		return r.Medium
	case "large":
		return r.Large
	default:
		return nil
	}
}

// WithSlot returns a copy of r with one slot set, used to accumulate a
// batch's in-memory partial updates before a single bulk write
// (spec.md §4.4.2, "Batching").
func (r Record) WithSlot(size string, data []byte) Record {
	switch size {
	case "small":
		r.Small = data
	case "medium":
		r.Medium = data
	case "large":
		r.Large = data
	}
	return r
}
