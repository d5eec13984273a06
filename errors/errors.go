package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // configuration parsing and validation
	PhaseResolve   Phase = "resolve"   // path to node id resolution
	PhaseRegister  Phase = "register"  // node binding and register-nodes
	PhaseLayout    Phase = "layout"    // structure layout construction
	PhaseEncode    Phase = "encode"    // bound memory to body
	PhaseDecode    Phase = "decode"    // body to bound memory
	PhaseTransport Phase = "transport" // service calls
	PhaseSession   Phase = "session"   // session state machine
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindAmbiguousID    Kind = "ambiguous_id"
	KindTimeout        Kind = "timeout"
	KindLengthMismatch Kind = "length_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindUnsupported    Kind = "unsupported"
	KindOverflow       Kind = "overflow"
	KindBadStatus      Kind = "bad_status"
	KindDisconnected   Kind = "disconnected"
	KindInvalidInput   Kind = "invalid_input"
	KindFieldMissing   Kind = "field_missing"
	KindInvalidState   Kind = "invalid_state"
	KindNotInitialized Kind = "not_initialized"
)

// Category is the coarse error class reported to the owning component.
type Category string

const (
	CategoryConfiguration Category = "ConfigurationError"
	CategoryResolution    Category = "ResolutionError"
	CategoryCodec         Category = "CodecError"
	CategoryTransport     Category = "TransportError"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Signal string
	Node   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Signal != "" || e.Node != "" {
		b.WriteString(": ")
		if e.Signal != "" && e.Node != "" {
			b.WriteString("signal ")
			b.WriteString(e.Signal)
			b.WriteString(", node ")
			b.WriteString(e.Node)
		} else if e.Signal != "" {
			b.WriteString("signal ")
			b.WriteString(e.Signal)
		} else {
			b.WriteString("node ")
			b.WriteString(e.Node)
		}
	}

	if e.Detail != "" {
		if e.Signal != "" || e.Node != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Category maps the error onto the four-way taxonomy.
func (e *Error) Category() Category {
	switch e.Phase {
	case PhaseConfig:
		return CategoryConfiguration
	case PhaseResolve:
		return CategoryResolution
	case PhaseLayout, PhaseEncode, PhaseDecode:
		return CategoryCodec
	case PhaseRegister:
		if e.Kind == KindInvalidInput || e.Kind == KindFieldMissing {
			return CategoryConfiguration
		}
		return CategoryTransport
	default:
		return CategoryTransport
	}
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the browse path segments
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Signal sets the signal name or index
func (b *Builder) Signal(s string) *Builder {
	b.err.Signal = s
	return b
}

// Node sets the node identifier text
func (b *Builder) Node(n string) *Builder {
	b.err.Node = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// CategoryOf returns the category of err, or "" if err carries no *Error.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category()
	}
	var re *ResolutionErrors
	if stderrors.As(err, &re) {
		return CategoryResolution
	}
	return ""
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PhaseOf returns the phase of the outermost *Error in err's chain, or "".
func PhaseOf(err error) Phase {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Phase
	}
	return ""
}

func IsConfiguration(err error) bool { return CategoryOf(err) == CategoryConfiguration }
func IsResolution(err error) bool    { return CategoryOf(err) == CategoryResolution }
func IsCodec(err error) bool         { return CategoryOf(err) == CategoryCodec }
func IsTransport(err error) bool     { return CategoryOf(err) == CategoryTransport }

// Convenience constructors for common error patterns

// SignalName formats a signal index for the Signal field.
func SignalName(index int, name string) string {
	if name == "" {
		return "#" + strconv.Itoa(index)
	}
	return "#" + strconv.Itoa(index) + " " + name
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// PathNotFound reports a browse hop that had no matching reference.
func PathNotFound(path []string, segment string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNotFound,
		Path:   path,
		Detail: fmt.Sprintf("no reference named %q", segment),
	}
}

// AmbiguousID reports a node addressed neither numerically nor by string.
func AmbiguousID(path []string, node string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindAmbiguousID,
		Path:   path,
		Node:   node,
		Detail: "identifier type is neither numeric nor string",
	}
}

// Timeout creates a timeout-exceeded error
func Timeout(phase Phase, path []string, attempts int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTimeout,
		Path:   path,
		Detail: fmt.Sprintf("timeout exceeded after %d attempt(s)", attempts),
		Value:  attempts,
	}
}

// LengthMismatch reports a disagreement between the local layout and a body.
func LengthMismatch(phase Phase, signal string, expected, actual int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Signal: signal,
		Detail: fmt.Sprintf("expected %d, got %d", expected, actual),
		Value:  actual,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, signal string, offset, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Signal: signal,
		Detail: fmt.Sprintf("offset %d out of bounds (length %d)", offset, length),
		Value:  offset,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not set", fieldName),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidState reports an operation called in the wrong session state.
func InvalidState(op, state string) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindInvalidState,
		Detail: fmt.Sprintf("%s not allowed in state %s", op, state),
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// BadStatus reports a non-good service status.
func BadStatus(phase Phase, service string, status fmt.Stringer) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadStatus,
		Detail: fmt.Sprintf("%s returned %s", service, status),
		Value:  status,
	}
}

// Transport wraps a failed service call
func Transport(service string, cause error) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindBadStatus,
		Detail: service,
		Cause:  cause,
	}
}

// Disconnected reports a dropped connection
func Disconnected(detail string) *Error {
	return &Error{
		Phase:  PhaseTransport,
		Kind:   KindDisconnected,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// FailedPath is a single path that could not be resolved
type FailedPath struct {
	Err       error
	Path      string
	Namespace uint16
}

// ResolutionErrors is returned when one or more configured paths fail to resolve.
type ResolutionErrors struct {
	Paths []FailedPath
}

// Add records a failed path.
func (e *ResolutionErrors) Add(ns uint16, path string, err error) {
	e.Paths = append(e.Paths, FailedPath{Namespace: ns, Path: path, Err: err})
}

// ErrOrNil returns e when it holds at least one failure.
func (e *ResolutionErrors) ErrOrNil() error {
	if e == nil || len(e.Paths) == 0 {
		return nil
	}
	return e
}

func (e *ResolutionErrors) Error() string {
	if len(e.Paths) == 0 {
		return "[resolve] not_found: no paths specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d path(s) failed to resolve:\n", len(e.Paths)))

	// Group by namespace for cleaner output
	byNS := make(map[uint16][]FailedPath)
	var nsOrder []uint16
	for _, p := range e.Paths {
		if _, exists := byNS[p.Namespace]; !exists {
			nsOrder = append(nsOrder, p.Namespace)
		}
		byNS[p.Namespace] = append(byNS[p.Namespace], p)
	}
	sort.Slice(nsOrder, func(i, j int) bool { return nsOrder[i] < nsOrder[j] })

	for _, ns := range nsOrder {
		b.WriteString("\n  ns=")
		b.WriteString(strconv.Itoa(int(ns)))
		b.WriteString(":\n")
		for _, p := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(p.Path)
			if p.Err != nil {
				b.WriteString(": ")
				b.WriteString(p.Err.Error())
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *ResolutionErrors) Is(target error) bool {
	_, ok := target.(*ResolutionErrors)
	return ok
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *ResolutionErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Paths))
	for _, p := range e.Paths {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}
