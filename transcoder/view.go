package transcoder

import (
	"encoding/binary"
	"math"
)

// View gives typed little-endian access to a bound region. Index i is an
// element index, not a byte offset. Accessors panic on out-of-range
// indices, the same as slice indexing.
type View []byte

func (v View) Bool(i int) bool { return v[i] != 0 }

func (v View) SetBool(i int, x bool) {
	if x {
		v[i] = 1
	} else {
		v[i] = 0
	}
}

func (v View) U8(i int) uint8 { return v[i] }
func (v View) SetU8(i int, x uint8) { v[i] = x }
func (v View) S8(i int) int8 { return int8(v[i]) }
func (v View) SetS8(i int, x int8) { v[i] = byte(x) }
func (v View) U16(i int) uint16 { return binary.LittleEndian.Uint16(v[i*2:]) }
func (v View) SetU16(i int, x uint16) { binary.LittleEndian.PutUint16(v[i*2:], x) }
func (v View) S16(i int) int16 { return int16(v.U16(i)) }
func (v View) SetS16(i int, x int16) { v.SetU16(i, uint16(x)) }
func (v View) U32(i int) uint32 { return binary.LittleEndian.Uint32(v[i*4:]) }
func (v View) SetU32(i int, x uint32) { binary.LittleEndian.PutUint32(v[i*4:], x) }
func (v View) S32(i int) int32 { return int32(v.U32(i)) }
func (v View) SetS32(i int, x int32) { v.SetU32(i, uint32(x)) }
func (v View) U64(i int) uint64 { return binary.LittleEndian.Uint64(v[i*8:]) }
func (v View) SetU64(i int, x uint64) { binary.LittleEndian.PutUint64(v[i*8:], x) }
func (v View) S64(i int) int64 { return int64(v.U64(i)) }
func (v View) SetS64(i int, x int64) { v.SetU64(i, uint64(x)) }
func (v View) F32(i int) float32 { return math.Float32frombits(v.U32(i)) }
func (v View) SetF32(i int, x float32) { v.SetU32(i, math.Float32bits(x)) }
func (v View) F64(i int) float64 { return math.Float64frombits(v.U64(i)) }
func (v View) SetF64(i int, x float64) { v.SetU64(i, math.Float64bits(x)) }
