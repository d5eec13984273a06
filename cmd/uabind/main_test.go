package main

import (
	"context"
	"strings"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/config"
	"github.com/wippyai/opcua-bridge/datasource"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("testdata/line.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestSimulate_Modes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*config.Config)
	}{
		{"writer", func(*config.Config) {}},
		{"reader", func(c *config.Config) { c.Mode = config.ModeReader }},
		{"method", func(c *config.Config) {
			c.Mode = config.ModeMethod
			c.Method.Object = config.NodeRef{Path: "Line1", Namespace: 2}
			c.Method.Method = config.NodeRef{Path: "Line1.Control.Apply", Namespace: 2}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadTestConfig(t)
			tt.setup(cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}

			sim, err := simulate(cfg)
			if err != nil {
				t.Fatalf("simulate: %v", err)
			}

			ctx := context.Background()
			src, err := datasource.Open(ctx, cfg, sim, datasource.Options{})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer src.Shutdown(ctx)

			for i := 0; i < 3; i++ {
				if err := src.Transfer(ctx); err != nil {
					t.Fatalf("Transfer %d: %v", i, err)
				}
			}
		})
	}
}

func TestSimulate_Encoding(t *testing.T) {
	cfg := loadTestConfig(t)
	sim, err := simulate(cfg)
	if err != nil {
		t.Fatal(err)
	}

	v := sim.Value(ua.StringNodeID{NS: 2, ID: "Line1.SCU"})
	if v.Ext == nil {
		t.Fatal("structured signal is not an extension object")
	}
	if want := (ua.NumericNodeID{NS: 2, ID: 5001}); !ua.Equal(v.Ext.TypeID, want) {
		t.Errorf("encoding = %v, want %v", v.Ext.TypeID, want)
	}

	reg, _ := cfg.Registry()
	l, err := transcoder.BuildLayout(reg, "SCU", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Validate(v.Ext.Body); err != nil {
		t.Errorf("seeded body does not validate: %v", err)
	}
}

func TestRenderLayout(t *testing.T) {
	cfg := loadTestConfig(t)
	reg, _ := cfg.Registry()
	l, err := transcoder.BuildLayout(reg, "SCU", 1)
	if err != nil {
		t.Fatal(err)
	}

	out := renderLayout(l)
	for _, want := range []string{"Layout SCU", "SCU.Mode[1].Limits", "SCU.Flags", "struct"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered layout lacks %q", want)
		}
	}
}

func TestFormatValues(t *testing.T) {
	mem := make([]byte, 40)
	v := transcoder.View(mem)
	v.SetU32(0, 7)
	v.SetU32(1, 42)

	tests := []struct {
		name string
		t    wit.Type
		n    int
		want string
	}{
		{"scalar", wit.U32{}, 1, "7"},
		{"array", wit.U32{}, 3, "[7 42 0]"},
		{"capped", wit.U8{}, 10, "[7 0 0 0 42 0 0 0 …]"},
		{"bool", wit.Bool{}, 1, "true"},
		{"float", wit.F64{}, 1, formatValue(v, wit.F64{}, 0)},
		{"string", wit.String{}, 1, "wit.String"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValues(v, tt.t, tt.n); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if got := scalarType(wit.U16{}, 4); got != "u16[4]" {
		t.Errorf("scalarType = %q", got)
	}
}
