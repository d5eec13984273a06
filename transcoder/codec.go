package transcoder

import (
	"encoding/binary"

	"github.com/wippyai/opcua-bridge/errors"
)

// Binder receives the body region of every leaf, in layout order.
// A nil Binder validates without binding.
type Binder interface {
	Len() int
	BindLeaf(i int, mem []byte)
}

// Leaves is a Binder backed by a plain slice of regions. Store it in a
// Binder variable once; converting on every call allocates.
type Leaves [][]byte

func (l Leaves) Len() int { return len(l) }

func (l Leaves) BindLeaf(i int, mem []byte) { l[i] = mem }

// cursor is the traversal state threaded through encode and decode.
type cursor struct {
	off  int // byte offset into the body
	leaf int // next leaf index
	row  int // next layout row
}

// Encode writes every element count into body and binds each leaf to the
// region of body that holds its values. Leaf bytes are not touched: the
// owner writes them through the bound regions. body must hold at least
// Size() bytes.
//
// Encode does not allocate.
func (l *Layout) Encode(body []byte, b Binder) error {
	if b != nil && b.Len() < l.leaves {
		return errors.New(errors.PhaseEncode, errors.KindLengthMismatch).
			Path(l.typeName).
			Detail("binder holds %d leaves, layout has %d", b.Len(), l.leaves).
			Value(b.Len()).
			Build()
	}

	c, err := l.encodeRow(body, b, cursor{})
	if err != nil {
		return err
	}
	return l.finish(errors.PhaseEncode, c)
}

func (l *Layout) encodeRow(body []byte, b Binder, c cursor) (cursor, error) {
	e := &l.rows[c.row]
	start := c.row
	c.row++

	if e.Prefixed() {
		if c.off+countSize > len(body) {
			return c, overrun(errors.PhaseEncode, e, c.off+countSize, len(body))
		}
		binary.LittleEndian.PutUint32(body[c.off:], e.Elements)
		c.off += countSize
	}

	if !e.Structured {
		n := int(e.Width) * int(e.Elements)
		if c.off+n > len(body) {
			return c, overrun(errors.PhaseEncode, e, c.off+n, len(body))
		}
		if b != nil {
			b.BindLeaf(c.leaf, body[c.off:c.off+n:c.off+n])
		}
		c.leaf++
		c.off += n
		return c, nil
	}

	var err error
	for i := uint32(0); i < e.Elements; i++ {
		for m := uint32(0); m < e.Members; m++ {
			if c, err = l.encodeRow(body, b, c); err != nil {
				return c, err
			}
		}
	}

	return c, l.checkSpan(errors.PhaseEncode, e, start, c.row)
}

// Decode validates body against the layout and binds each leaf to its
// region of body. The body length must equal Size() and every count
// prefix must match the declared element count.
//
// Decode does not allocate.
func (l *Layout) Decode(body []byte, b Binder) error {
	if len(body) != l.size {
		return errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
			Path(l.typeName).
			Detail("body length: expected %d, got %d", l.size, len(body)).
			Value(len(body)).
			Build()
	}
	if b != nil && b.Len() < l.leaves {
		return errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
			Path(l.typeName).
			Detail("binder holds %d leaves, layout has %d", b.Len(), l.leaves).
			Value(b.Len()).
			Build()
	}

	c, err := l.decodeRow(body, b, cursor{})
	if err != nil {
		return err
	}
	return l.finish(errors.PhaseDecode, c)
}

// Validate checks body without binding.
func (l *Layout) Validate(body []byte) error {
	return l.Decode(body, nil)
}

func (l *Layout) decodeRow(body []byte, b Binder, c cursor) (cursor, error) {
	e := &l.rows[c.row]
	start := c.row
	c.row++

	if e.Prefixed() {
		if c.off+countSize > len(body) {
			return c, overrun(errors.PhaseDecode, e, c.off+countSize, len(body))
		}
		got := binary.LittleEndian.Uint32(body[c.off:])
		if got != e.Elements {
			return c, errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
				Path(e.Path).
				Detail("element count at offset %d: expected %d, got %d", c.off, e.Elements, got).
				Value(got).
				Build()
		}
		c.off += countSize
	}

	if !e.Structured {
		n := int(e.Width) * int(e.Elements)
		if c.off+n > len(body) {
			return c, overrun(errors.PhaseDecode, e, c.off+n, len(body))
		}
		if b != nil {
			b.BindLeaf(c.leaf, body[c.off:c.off+n:c.off+n])
		}
		c.leaf++
		c.off += n
		return c, nil
	}

	var err error
	for i := uint32(0); i < e.Elements; i++ {
		for m := uint32(0); m < e.Members; m++ {
			if c, err = l.decodeRow(body, b, c); err != nil {
				return c, err
			}
		}
	}

	return c, l.checkSpan(errors.PhaseDecode, e, start, c.row)
}

// checkSpan verifies that a structure consumed exactly the rows it owns.
func (l *Layout) checkSpan(phase errors.Phase, e *Row, start, end int) error {
	if end-start == int(e.Span) {
		return nil
	}
	return errors.New(phase, errors.KindInvalidState).
		Path(e.Path).
		Detail("consumed %d rows, span is %d", end-start, e.Span).
		Build()
}

func (l *Layout) finish(phase errors.Phase, c cursor) error {
	if c.row != len(l.rows) || c.leaf != l.leaves || c.off != l.size {
		return errors.New(phase, errors.KindLengthMismatch).
			Path(l.typeName).
			Detail("walked %d rows, %d leaves, %d bytes; layout has %d rows, %d leaves, %d bytes",
				c.row, c.leaf, c.off, len(l.rows), l.leaves, l.size).
			Build()
	}
	return nil
}

func overrun(phase errors.Phase, e *Row, need, have int) error {
	return errors.New(phase, errors.KindOutOfBounds).
		Path(e.Path).
		Detail("need %d bytes, buffer holds %d", need, have).
		Value(need).
		Build()
}
