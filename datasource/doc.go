// Package datasource is the entry point for an owning component.
//
// A Source wraps one client session built from configuration and exposes
// the five calls a cyclic component needs:
//
//	src, err := datasource.New(cfg, transport, datasource.Options{})
//	err = src.Initialise(ctx, cfg.Endpoint, cfg.Credentials.UA())
//	h, err := src.RegisterSignal(ctx, "Line1.Speed", 2, "f32", 1, false)
//	mem, err := src.GetMemory(h)
//	err = src.Transfer(ctx) // once per cycle
//	err = src.Shutdown(ctx)
//
// Open does the first three steps for every signal in the configuration.
// Unresolved paths fail the whole setup unless disable_unresolved is set,
// in which case only the affected signals are dropped.
package datasource
