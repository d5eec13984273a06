package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindLengthMismatch,
				Path:   []string{"A", "B", "C"},
				Signal: "#2 SCU",
				Node:   "ns=1;i=1001",
				Detail: "expected 20, got 16",
			},
			contains: []string{"[decode]", "length_mismatch", "A.B.C", "#2 SCU", "ns=1;i=1001", "expected 20, got 16"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseEncode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[encode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseTransport,
				Kind:   KindBadStatus,
				Detail: "write",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[transport]", "bad_status", "write", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseTransport,
		Kind:  KindBadStatus,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseResolve,
		Kind:  KindTimeout,
		Path:  []string{"A"},
	}

	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindTimeout}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseTransport, Kind: KindTimeout}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindNotFound}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindOutOfBounds).
		Path("SCU", "Mode").
		Signal("#1").
		Node("ns=2;s=SCU").
		Value(42).
		Cause(cause).
		Detail("offset %d past %d", 42, 40).
		Build()

	if err.Phase != PhaseEncode || err.Kind != KindOutOfBounds {
		t.Errorf("got %s/%s", err.Phase, err.Kind)
	}
	if strings.Join(err.Path, ".") != "SCU.Mode" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Signal != "#1" || err.Node != "ns=2;s=SCU" {
		t.Errorf("Signal/Node = %q/%q", err.Signal, err.Node)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != "offset 42 past 40" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want Category
	}{
		{InvalidInput(PhaseConfig, "x"), "config", CategoryConfiguration},
		{PathNotFound([]string{"A"}, "A"), "resolve", CategoryResolution},
		{Timeout(PhaseResolve, nil, 2), "timeout", CategoryResolution},
		{LengthMismatch(PhaseDecode, "#0", 2, 3), "decode", CategoryCodec},
		{Unsupported(PhaseLayout, "string"), "layout", CategoryCodec},
		{Disconnected("lost"), "transport", CategoryTransport},
		{FieldMissing(PhaseRegister, nil, "type"), "register config", CategoryConfiguration},
		{fmt.Errorf("wrapped: %w", OutOfBounds(PhaseEncode, "#0", 9, 4)), "wrapped", CategoryCodec},
		{errors.New("plain"), "plain", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf = %q, want %q", got, tt.want)
			}
		})
	}

	if !IsCodec(LengthMismatch(PhaseEncode, "", 1, 2)) {
		t.Error("IsCodec should be true")
	}
	if !IsTransport(Transport("read", errors.New("eof"))) {
		t.Error("IsTransport should be true")
	}
}

func TestPhaseAndKindOf(t *testing.T) {
	err := fmt.Errorf("cycle: %w", InvalidState("transfer", "closed"))
	if PhaseOf(err) != PhaseSession || KindOf(err) != KindInvalidState {
		t.Errorf("got %s/%s", PhaseOf(err), KindOf(err))
	}
	if PhaseOf(errors.New("plain")) != "" || KindOf(nil) != "" {
		t.Error("non-structured errors should have no phase or kind")
	}
}

func TestResolutionErrors(t *testing.T) {
	var re ResolutionErrors
	if re.ErrOrNil() != nil {
		t.Fatal("empty ResolutionErrors should be nil")
	}

	notFound := PathNotFound([]string{"A", "X"}, "X")
	re.Add(2, "A.X", notFound)
	re.Add(1, "B.Y", Timeout(PhaseResolve, []string{"B", "Y"}, 2))
	re.Add(2, "A.Z", nil)

	err := re.ErrOrNil()
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "3 path(s) failed to resolve") {
		t.Errorf("unexpected header: %q", msg)
	}
	if strings.Index(msg, "ns=1") > strings.Index(msg, "ns=2") {
		t.Errorf("namespaces not sorted: %q", msg)
	}
	if !errors.Is(err, notFound) {
		t.Error("individual failure should be reachable through errors.Is")
	}
	if !IsResolution(err) {
		t.Error("ResolutionErrors should categorize as resolution")
	}
	if !errors.Is(err, &ResolutionErrors{}) {
		t.Error("Is should match any ResolutionErrors")
	}
}
