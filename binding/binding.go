package binding

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
)

// NewScalar describes a scalar (elements == 1) or fixed-length array signal.
func NewScalar(name string, path ua.PathSpec, scalar wit.Type, elements uint32) (*Binding, error) {
	if path.IsZero() {
		return nil, errors.FieldMissing(errors.PhaseConfig, []string{name}, "path")
	}
	if elements == 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path.String()).
			Signal(name).
			Detail("element count must be at least 1").
			Build()
	}

	width, err := transcoder.ScalarWidth(scalar)
	if err != nil {
		return nil, err
	}
	builtin, err := transcoder.BuiltinOf(scalar)
	if err != nil {
		return nil, err
	}

	return &Binding{
		Name:     name,
		Path:     path,
		Scalar:   scalar,
		Elements: elements,
		Width:    width,
		Builtin:  builtin,
	}, nil
}

// NewStructured describes a signal carried as an extension object of
// typeName, or a top-level array of them when elements > 1.
func NewStructured(name string, path ua.PathSpec, typeName string, elements uint32) (*Binding, error) {
	if path.IsZero() {
		return nil, errors.FieldMissing(errors.PhaseConfig, []string{name}, "path")
	}
	if typeName == "" {
		return nil, errors.FieldMissing(errors.PhaseConfig, []string{name}, "type")
	}
	if elements == 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path.String()).
			Signal(name).
			Detail("element count must be at least 1").
			Build()
	}

	return &Binding{
		Name:       name,
		Path:       path,
		TypeName:   typeName,
		Elements:   elements,
		Builtin:    ua.TypeExtensionObject,
		Structured: true,
	}, nil
}

// Variant returns a variant whose payload aliases the binding's memory,
// so a prepared write request always carries the current values.
func (b *Binding) Variant() ua.Variant {
	v := ua.Variant{Type: b.Builtin, Raw: b.Memory}
	if b.Elements != 1 {
		v.Count = b.Elements
	}
	return v
}

// Load copies a read value into the binding's memory after checking its
// type and length.
func (b *Binding) Load(v ua.Variant) error {
	if v.Type != b.Builtin {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Signal(b.Name).
			Path(b.Path.String()).
			Detail("value type %s, signal type %s", v.Type, b.Builtin).
			Build()
	}
	if len(v.Raw) != len(b.Memory) {
		e := errors.LengthMismatch(errors.PhaseDecode, b.Name, len(b.Memory), len(v.Raw))
		e.Path = []string{b.Path.String()}
		return e
	}
	copy(b.Memory, v.Raw)
	return nil
}

// Arena hands out consecutive regions of one buffer.
type Arena struct {
	buf []byte
	off int
}

// NewArena allocates an arena of size bytes.
func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Alloc returns the next n bytes, clipped so appends cannot spill into
// the neighbouring region.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 || a.off+n > len(a.buf) {
		return nil, errors.OutOfBounds(errors.PhaseRegister, "", a.off+n, len(a.buf))
	}
	mem := a.buf[a.off : a.off+n : a.off+n]
	a.off += n
	return mem, nil
}

// Bytes returns the whole arena.
func (a *Arena) Bytes() []byte { return a.buf }

// Used returns the number of bytes handed out.
func (a *Arena) Used() int { return a.off }
