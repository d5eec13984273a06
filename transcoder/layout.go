package transcoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder/internal/types"
)

// countSize is the width of an element-count prefix.
const countSize = 4

// maxDepth bounds structure nesting; deeper trees are almost always a
// self-referencing type in the registry.
const maxDepth = 32

// maxRows bounds the unrolled table of one layout.
const maxRows = 1 << 20

// Row is one entry of a flattened layout table.
type Row = types.Entry

// Layout is the flattened pre-order description of a structure type.
//
// Array-of-structure rows are unrolled: each instance gets its own copy of
// the member rows, so the table can be walked with a single row index.
type Layout struct {
	typeName string
	rows     []Row
	leaves   int
	size     int
}

// BuildLayout flattens typeName as described by oracle. elements is the
// top-level instance count; a value other than 1 makes the body carry a
// leading count. The table is sized by a counting pass and then filled.
func BuildLayout(oracle opcuabridge.Oracle, typeName string, elements uint32) (*Layout, error) {
	if oracle == nil {
		return nil, errors.NotInitialized(errors.PhaseLayout, "type oracle")
	}

	b := &builder{oracle: oracle, counts: make(map[string]int)}

	perInstance, err := b.count(typeName, 0, []string{typeName})
	if err != nil {
		return nil, err
	}

	rows := 1 + uint64(elements)*uint64(perInstance)
	if rows > maxRows {
		return nil, rowOverflow([]string{typeName}, rows)
	}
	total := int(rows)
	b.rows = make([]Row, 0, total)
	if _, err := b.fill(typeName, typeName, elements, 0); err != nil {
		return nil, err
	}

	if len(b.rows) != total {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidState).
			Path(typeName).
			Detail("counted %d rows, filled %d", total, len(b.rows)).
			Build()
	}

	return &Layout{
		typeName: typeName,
		rows:     b.rows,
		leaves:   b.leaves,
		size:     int(b.rows[0].Size),
	}, nil
}

type builder struct {
	oracle opcuabridge.Oracle
	counts map[string]int
	rows   []Row
	leaves int
}

// count returns the number of rows one instance of typeName's members
// occupies, excluding the row of the structure itself.
func (b *builder) count(typeName string, depth int, path []string) (int, error) {
	if n, ok := b.counts[typeName]; ok {
		return n, nil
	}
	if depth >= maxDepth {
		return 0, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Path(path...).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}

	members, err := b.oracle.MemberCount(typeName)
	if err != nil {
		return 0, errors.New(errors.PhaseLayout, errors.KindNotFound).
			Path(path...).
			Detail("member count of %q", typeName).
			Cause(err).
			Build()
	}

	var n uint64
	for i := 0; i < members; i++ {
		m, err := b.member(typeName, i, path)
		if err != nil {
			return 0, err
		}
		n++
		if m.Structured {
			sub, err := b.count(m.TypeName, depth+1, append(path[:len(path):len(path)], m.Name))
			if err != nil {
				return 0, err
			}
			n += uint64(m.Elements) * uint64(sub)
		}
		if n > maxRows {
			return 0, rowOverflow(path, n)
		}
	}

	b.counts[typeName] = int(n)
	return int(n), nil
}

// fill appends the rows of one structure row and its unrolled members.
func (b *builder) fill(typeName, path string, elements uint32, depth int) (*Row, error) {
	if depth >= maxDepth {
		return nil, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Path(path).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}

	members, err := b.oracle.MemberCount(typeName)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLayout, errors.KindNotFound, err, "member count of "+strconv.Quote(typeName))
	}

	idx := len(b.rows)
	b.rows = append(b.rows, Row{
		Path:       path,
		Kind:       types.KindStruct,
		Structured: true,
		Elements:   elements,
		Members:    uint32(members),
	})

	var size uint64
	if elements != 1 {
		size = countSize
	}

	for inst := uint32(0); inst < elements; inst++ {
		prefix := path
		if elements != 1 {
			prefix = path + "[" + strconv.FormatUint(uint64(inst), 10) + "]"
		}
		for i := 0; i < members; i++ {
			m, err := b.member(typeName, i, []string{path})
			if err != nil {
				return nil, err
			}
			childPath := prefix + "." + m.Name

			if m.Structured {
				child, err := b.fill(m.TypeName, childPath, m.Elements, depth+1)
				if err != nil {
					return nil, err
				}
				if size += uint64(child.Size); size > math.MaxUint32 {
					return nil, sizeOverflow(path, size)
				}
				continue
			}

			leaf, err := leafRow(m, childPath)
			if err != nil {
				return nil, err
			}
			b.rows = append(b.rows, leaf)
			b.leaves++
			if size += uint64(leaf.Size); size > math.MaxUint32 {
				return nil, sizeOverflow(path, size)
			}
		}
	}

	row := &b.rows[idx]
	row.Span = uint32(len(b.rows) - idx)
	row.Size = uint32(size)
	return row, nil
}

func rowOverflow(path []string, rows uint64) error {
	e := errors.Overflow(errors.PhaseLayout, rows, "layout row limit "+strconv.Itoa(maxRows))
	e.Path = path
	return e
}

func sizeOverflow(path string, size uint64) error {
	e := errors.Overflow(errors.PhaseLayout, size, "body size")
	e.Path = []string{path}
	return e
}

func (b *builder) member(typeName string, index int, path []string) (opcuabridge.Member, error) {
	m, err := b.oracle.Member(typeName, index)
	if err != nil {
		return m, errors.New(errors.PhaseLayout, errors.KindNotFound).
			Path(path...).
			Detail("member %d of %q", index, typeName).
			Cause(err).
			Build()
	}
	if m.Structured && m.TypeName == "" {
		return m, errors.FieldMissing(errors.PhaseLayout, append(path[:len(path):len(path)], m.Name), "type name")
	}
	return m, nil
}

func leafRow(m opcuabridge.Member, path string) (Row, error) {
	k, ok := types.FromWIT(m.Scalar)
	if !ok {
		return Row{}, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Path(path).
			Detail("member %q: %s", m.Name, scalarName(m.Scalar)).
			Build()
	}

	size := uint64(k.Width()) * uint64(m.Elements)
	if m.Elements != 1 {
		size += countSize
	}
	if size > math.MaxUint32 {
		return Row{}, sizeOverflow(path, size)
	}

	return Row{
		Path:     path,
		Kind:     k,
		Elements: m.Elements,
		Width:    k.Width(),
		Span:     1,
		Size:     uint32(size),
	}, nil
}

// TypeName returns the structure type the layout was built for.
func (l *Layout) TypeName() string { return l.typeName }

// Size returns the exact encoded body length.
func (l *Layout) Size() int { return l.size }

// Leaves returns the number of leaf rows, which is the number of regions
// Encode and Decode bind.
func (l *Layout) Leaves() int { return l.leaves }

// Len returns the number of rows.
func (l *Layout) Len() int { return len(l.rows) }

// Row returns row i.
func (l *Layout) Row(i int) Row { return l.rows[i] }

// Rows returns a copy of the table.
func (l *Layout) Rows() []Row {
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// LeafRows returns the leaf rows in binding order.
func (l *Layout) LeafRows() []Row {
	out := make([]Row, 0, l.leaves)
	for _, r := range l.rows {
		if !r.Structured {
			out = append(out, r)
		}
	}
	return out
}

func (l *Layout) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "layout %s: %d rows, %d leaves, %d bytes\n", l.typeName, len(l.rows), l.leaves, l.size)
	for i, r := range l.rows {
		if r.Structured {
			fmt.Fprintf(&sb, "%4d  %-40s struct  elements=%d members=%d span=%d size=%d\n",
				i, r.Path, r.Elements, r.Members, r.Span, r.Size)
			continue
		}
		fmt.Fprintf(&sb, "%4d  %-40s %-6s  elements=%d width=%d size=%d\n",
			i, r.Path, r.Kind, r.Elements, r.Width, r.Size)
	}
	return sb.String()
}
