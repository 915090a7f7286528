// Package safecast narrows 256-bit unsigned values into the fixed-width slots used by packed
// pool state. A narrowing either preserves the value exactly or fails with the error of the
// width that was exceeded; it never truncates silently.
package safecast

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Width is a target bit width. Valid widths are the multiples of 8 from 8 to 248.
type Width uint

const (
	Uint8   Width = 8
	Uint16  Width = 16
	Uint24  Width = 24
	Uint32  Width = 32
	Uint40  Width = 40
	Uint48  Width = 48
	Uint56  Width = 56
	Uint64  Width = 64
	Uint72  Width = 72
	Uint80  Width = 80
	Uint88  Width = 88
	Uint96  Width = 96
	Uint104 Width = 104
	Uint112 Width = 112
	Uint120 Width = 120
	Uint128 Width = 128
	Uint136 Width = 136
	Uint144 Width = 144
	Uint152 Width = 152
	Uint160 Width = 160
	Uint168 Width = 168
	Uint176 Width = 176
	Uint184 Width = 184
	Uint192 Width = 192
	Uint200 Width = 200
	Uint208 Width = 208
	Uint216 Width = 216
	Uint224 Width = 224
	Uint232 Width = 232
	Uint240 Width = 240
	Uint248 Width = 248
)

// Widths lists every supported target width in ascending order.
func Widths() []Width {
	widths := make([]Width, 0, len(widthErrors))
	for w := Uint8; w <= Uint248; w += 8 {
		widths = append(widths, w)
	}
	return widths
}

// Valid reports whether w is one of the supported target widths.
func (w Width) Valid() bool {
	return w >= Uint8 && w <= Uint248 && w%8 == 0
}

// masks[i] holds 2^((i+1)*8) - 1.
var masks [len(widthErrors)]*uint256.Int

func init() {
	one := uint256.NewInt(1)
	for i := range masks {
		m := new(uint256.Int).Lsh(one, uint((i+1)*8))
		masks[i] = m.Sub(m, one)
	}
}

// Narrow returns a copy of x if it fits in w bits.
//
// The value is truncated to w bits and compared with the original; any difference means
// significant bits were dropped and the width-specific error is returned.
func Narrow(x *uint256.Int, w Width) (*uint256.Int, error) {
	if x == nil {
		return nil, ErrNilValue
	}
	if !w.Valid() {
		return nil, ErrInvalidWidth
	}

	truncated := new(uint256.Int).And(x, masks[w/8-1])
	if !truncated.Eq(x) {
		return nil, widthErrors[w/8-1]
	}
	return truncated, nil
}

// Fits reports whether x can be narrowed to w bits.
func Fits(x *uint256.Int, w Width) bool {
	_, err := Narrow(x, w)
	return err == nil
}

// ToUint8 narrows x to a uint8.
func ToUint8(x *uint256.Int) (uint8, error) {
	v, err := Narrow(x, Uint8)
	if err != nil {
		return 0, err
	}
	return uint8(v.Uint64()), nil
}

// ToUint16 narrows x to a uint16.
func ToUint16(x *uint256.Int) (uint16, error) {
	v, err := Narrow(x, Uint16)
	if err != nil {
		return 0, err
	}
	return uint16(v.Uint64()), nil
}

// ToUint32 narrows x to a uint32.
func ToUint32(x *uint256.Int) (uint32, error) {
	v, err := Narrow(x, Uint32)
	if err != nil {
		return 0, err
	}
	return uint32(v.Uint64()), nil
}

// ToUint64 narrows x to a uint64.
func ToUint64(x *uint256.Int) (uint64, error) {
	v, err := Narrow(x, Uint64)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// ToUint128 narrows x to 128 bits. Go has no native 128-bit type, so the result stays a *uint256.Int.
func ToUint128(x *uint256.Int) (*uint256.Int, error) {
	return Narrow(x, Uint128)
}

// FromBig converts a non-negative big.Int of at most 256 bits.
func FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return nil, ErrNilValue
	}
	if b.Sign() < 0 {
		return nil, ErrNegative
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrExceeds256Bits
	}
	return v, nil
}
