package ua

import (
	"strconv"
	"strings"

	"github.com/wippyai/opcua-bridge/errors"
)

// PathSeparator splits browse path segments.
const PathSeparator = "."

// PathSpec is a dotted browse path below the Objects folder plus the
// namespace index every segment's browse name lives in.
type PathSpec struct {
	segments []string
	ns       uint16
}

// ParsePath splits path on '.' and rejects empty segments.
func ParsePath(path string, ns uint16) (PathSpec, error) {
	if path == "" {
		return PathSpec{}, errors.FieldMissing(errors.PhaseConfig, nil, "path")
	}

	segments := strings.Split(path, PathSeparator)
	for i, s := range segments {
		if s == "" {
			return PathSpec{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(segments...).
				Detail("empty segment %d in %s", i, strconv.Quote(path)).
				Build()
		}
	}

	return PathSpec{segments: segments, ns: ns}, nil
}

// MustParsePath is ParsePath for literals; it panics on error.
func MustParsePath(path string, ns uint16) PathSpec {
	p, err := ParsePath(path, ns)
	if err != nil {
		panic(err)
	}
	return p
}

func (p PathSpec) Namespace() uint16 { return p.ns }

func (p PathSpec) Len() int { return len(p.segments) }

// Segment returns segment i.
func (p PathSpec) Segment(i int) string { return p.segments[i] }

// Segments returns a copy of the segment list.
func (p PathSpec) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Prefix returns the first n segments, for error reporting.
func (p PathSpec) Prefix(n int) []string {
	if n > len(p.segments) {
		n = len(p.segments)
	}
	out := make([]string, n)
	copy(out, p.segments[:n])
	return out
}

func (p PathSpec) IsZero() bool { return len(p.segments) == 0 }

func (p PathSpec) String() string {
	return strings.Join(p.segments, PathSeparator)
}
