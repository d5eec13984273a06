package types

// Entry is one row of a flattened structure layout.
//
// A structure row is followed by its members, repeated once per element
// (array of records, not struct of arrays). Span counts the rows of the
// whole subtree, the row itself included.
type Entry struct {
	Path       string
	Elements   uint32
	Width      uint32 // leaf: bytes per element
	Members    uint32 // structure: direct members per instance
	Span       uint32
	Size       uint32 // encoded bytes of the subtree, count prefix included
	Kind       Kind
	Structured bool
}

// Prefixed reports whether the row carries a 4-byte element count.
// Only single elements are encoded bare.
func (e *Entry) Prefixed() bool {
	return e.Elements != 1
}
