// Package types defines the scalar kinds and layout rows used by the transcoder.
//
// Kinds are drawn from the WIT primitive vocabulary; each has a fixed
// little-endian width on the wire:
//
//	Kind      Width
//	───────────────
//	bool      1
//	u8/s8     1
//	u16/s16   2
//	u32/s32   4
//	f32       4
//	u64/s64   8
//	f64       8
//
// This package is internal to the transcoder.
package types
