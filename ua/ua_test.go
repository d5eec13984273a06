package ua

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	uaerrors "github.com/wippyai/opcua-bridge/errors"
)

func TestParseNodeID(t *testing.T) {
	guid := uuid.MustParse("72962b91-fa75-4ae6-8d28-b404dc7daf63")

	tests := []struct {
		want  NodeID
		input string
	}{
		{NumericNodeID{ID: 85}, "i=85"},
		{NumericNodeID{NS: 2, ID: 1001}, "ns=2;i=1001"},
		{StringNodeID{NS: 1, ID: "Plant.SCU"}, "ns=1;s=Plant.SCU"},
		{GUIDNodeID{NS: 3, ID: guid}, "ns=3;g=72962b91-fa75-4ae6-8d28-b404dc7daf63"},
		{OpaqueNodeID{NS: 4, ID: []byte{1, 2, 3}}, "ns=4;b=AQID"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseNodeID(tc.input)
			if err != nil {
				t.Fatalf("ParseNodeID: %v", err)
			}
			if !Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
			if got.String() != tc.input {
				t.Errorf("String() = %q, want %q", got.String(), tc.input)
			}
		})
	}
}

func TestParseNodeID_Invalid(t *testing.T) {
	for _, input := range []string{"", "ns=1", "ns=x;i=1", "i=abc", "s=", "q=1", "ns=1;g=nope"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseNodeID(input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !uaerrors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if Equal(NumericNodeID{NS: 1, ID: 5}, StringNodeID{NS: 1, ID: "5"}) {
		t.Error("numeric and string ids must differ")
	}
	if Equal(NumericNodeID{NS: 1, ID: 5}, NumericNodeID{NS: 2, ID: 5}) {
		t.Error("namespace must be compared")
	}
	if !Equal(nil, nil) {
		t.Error("nil ids are equal")
	}
	if Equal(ObjectsFolder, nil) {
		t.Error("nil differs from non-nil")
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("A.B.C", 2)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if p.Len() != 3 || p.Segment(1) != "B" || p.Namespace() != 2 {
		t.Errorf("unexpected path %v ns=%d", p.Segments(), p.Namespace())
	}
	if p.String() != "A.B.C" {
		t.Errorf("String() = %q", p.String())
	}

	segs := p.Segments()
	segs[0] = "mutated"
	if p.Segment(0) != "A" {
		t.Error("Segments must return a copy")
	}
	if got := p.Prefix(2); len(got) != 2 || got[1] != "B" {
		t.Errorf("Prefix(2) = %v", got)
	}

	for _, bad := range []string{"", "A..B", ".A", "A."} {
		_, err := ParsePath(bad, 0)
		var e *uaerrors.Error
		if !errors.As(err, &e) || e.Phase != uaerrors.PhaseConfig {
			t.Errorf("ParsePath(%q) = %v, want config error", bad, err)
		}
	}
}

func TestStatusCode(t *testing.T) {
	if StatusGood.IsBad() {
		t.Error("Good is not bad")
	}
	if !StatusBadTimeout.IsBad() {
		t.Error("BadTimeout is bad")
	}
	if StatusBadNodeIDUnknown.String() != "BadNodeIdUnknown" {
		t.Errorf("String() = %q", StatusBadNodeIDUnknown.String())
	}
	if StatusCode(0x80FF0000).String() != "0x80ff0000" {
		t.Errorf("unknown code = %q", StatusCode(0x80FF0000).String())
	}
}
