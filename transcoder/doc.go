// Package transcoder encodes and decodes structured values as flat binary bodies.
//
// A structure type is described by an Oracle as an ordered member list.
// BuildLayout flattens that description into a pre-order table of rows,
// one per structure boundary and one per leaf, with array-of-structure
// instances unrolled:
//
//	SCU{ID: u8, Mode: Mode_Config[2]}
//
//	row  path                 kind
//	───────────────────────────────────
//	0    SCU                  struct x1
//	1    SCU.ID               u8
//	2    SCU.Mode             struct x2
//	3    SCU.Mode[0].Enabled  bool
//	...  SCU.Mode[1].Enabled  bool
//
// # Body Format
//
// Values are little-endian and packed without padding. Any row whose
// element count is not 1 is preceded by a 4-byte count:
//
//	Row                   Bytes
//	────────────────────────────────────────────
//	leaf, count 1         width
//	leaf, count n         4 + width*n
//	struct, count 1       members
//	struct, count n       4 + n * members
//
// # Binding
//
// Encode and Decode do not copy values. They walk the table with a single
// cursor and hand each leaf the subslice of the body that holds it, so the
// owner reads and writes leaf values in place:
//
//	layout, _ := transcoder.BuildLayout(oracle, "SCU", 1)
//	body := make([]byte, layout.Size())
//	leaves := make(transcoder.Leaves, layout.Leaves())
//	var binder transcoder.Binder = leaves
//	_ = layout.Encode(body, binder)
//	transcoder.View(leaves[0]).SetU8(0, 7)
//
// Decode additionally checks the body length and every count prefix, and
// reports disagreements as codec errors naming the row path.
package transcoder
