package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// SampleFormat is the native sample representation of an output device.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatI8
	FormatI16
	FormatI24 // packed 24-bit; reported by some devices, not rendered
	FormatI32
	FormatI64
	FormatU8
	FormatU16
	FormatU32
	FormatU64
	FormatF32
	FormatF64
)

var formatNames = map[SampleFormat]string{
	FormatI8:  "i8",
	FormatI16: "i16",
	FormatI24: "i24",
	FormatI32: "i32",
	FormatI64: "i64",
	FormatU8:  "u8",
	FormatU16: "u16",
	FormatU32: "u32",
	FormatU64: "u64",
	FormatF32: "f32",
	FormatF64: "f64",
}

func (f SampleFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Size returns the width of one sample in bytes, or 0 for unknown formats.
func (f SampleFormat) Size() int {
	switch f {
	case FormatI8, FormatU8:
		return 1
	case FormatI16, FormatU16:
		return 2
	case FormatI24:
		return 3
	case FormatI32, FormatU32, FormatF32:
		return 4
	case FormatI64, FormatU64, FormatF64:
		return 8
	default:
		return 0
	}
}

// ParseFormat accepts the short names printed by String plus the common
// aliases s8/s16/s24/s32/s64, float32 and float64.
func ParseFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i8", "s8":
		return FormatI8, nil
	case "i16", "s16":
		return FormatI16, nil
	case "i24", "s24":
		return FormatI24, nil
	case "i32", "s32":
		return FormatI32, nil
	case "i64", "s64":
		return FormatI64, nil
	case "u8":
		return FormatU8, nil
	case "u16":
		return FormatU16, nil
	case "u32":
		return FormatU32, nil
	case "u64":
		return FormatU64, nil
	case "f32", "float32", "float":
		return FormatF32, nil
	case "f64", "float64", "double":
		return FormatF64, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Sample is the set of Go types a device buffer can hold.
type Sample interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// FromFloat converts a sample in [-1, 1] to T. Out-of-range input saturates,
// NaN maps to equilibrium. Unsigned types are offset so 0.0 lands on the
// midpoint of the range.
func FromFloat[T Sample](v float32) T {
	x := float64(v)
	if x != x {
		x = 0
	}
	x = max(-1, min(1, x))

	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return T(x)
	case int8:
		return T(toSigned(x, math.MaxInt8))
	case int16:
		return T(toSigned(x, math.MaxInt16))
	case int32:
		return T(toSigned(x, math.MaxInt32))
	case int64:
		return T(toSigned(x, math.MaxInt64))
	case uint8:
		return T(toUnsigned(x, math.MaxUint8))
	case uint16:
		return T(toUnsigned(x, math.MaxUint16))
	case uint32:
		return T(toUnsigned(x, math.MaxUint32))
	default:
		return T(toUnsigned(x, math.MaxUint64))
	}
}

func toSigned(x float64, maxVal int64) int64 {
	if x >= 1 {
		return maxVal
	}
	return int64(math.Round(x * (float64(maxVal) + 1)))
}

func toUnsigned(x float64, maxVal uint64) uint64 {
	if x >= 1 {
		return maxVal
	}
	half := float64(maxVal/2 + 1)
	return uint64(math.Round((x + 1) * half))
}

// encode writes src into dst as little-endian samples. dst must hold
// len(src) samples.
func encode[T Sample](dst []byte, src []T) {
	le := binary.LittleEndian
	switch s := any(src).(type) {
	case []int8:
		for i, v := range s {
			dst[i] = byte(v)
		}
	case []uint8:
		copy(dst, s)
	case []int16:
		for i, v := range s {
			le.PutUint16(dst[2*i:], uint16(v))
		}
	case []uint16:
		for i, v := range s {
			le.PutUint16(dst[2*i:], v)
		}
	case []int32:
		for i, v := range s {
			le.PutUint32(dst[4*i:], uint32(v))
		}
	case []uint32:
		for i, v := range s {
			le.PutUint32(dst[4*i:], v)
		}
	case []int64:
		for i, v := range s {
			le.PutUint64(dst[8*i:], uint64(v))
		}
	case []uint64:
		for i, v := range s {
			le.PutUint64(dst[8*i:], v)
		}
	case []float32:
		for i, v := range s {
			le.PutUint32(dst[4*i:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range s {
			le.PutUint64(dst[8*i:], math.Float64bits(v))
		}
	}
}
