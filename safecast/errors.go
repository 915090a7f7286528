package safecast

import (
	"errors"
	"fmt"
)

// WidthError reports that a value needs more significant bits than the target width provides.
// Every target width has exactly one sentinel of this type, so callers can tell an overflow of
// 128 bits apart from an overflow of 64 bits with errors.Is.
type WidthError struct {
	bits uint
}

// Bits returns the width the value failed to fit in.
func (e *WidthError) Bits() uint { return e.bits }

func (e *WidthError) Error() string {
	return fmt.Sprintf("safecast: value doesn't fit in %d bits", e.bits)
}

// Is matches any *WidthError carrying the same width.
func (e *WidthError) Is(target error) bool {
	t, ok := target.(*WidthError)
	return ok && t.bits == e.bits
}

var (
	// ErrNilValue is returned when a nil *uint256.Int is passed in.
	ErrNilValue = errors.New("safecast: nil value")
	// ErrInvalidWidth is returned for a width that is not a multiple of 8 in [8, 248].
	ErrInvalidWidth = errors.New("safecast: invalid target width")
	// ErrNegative is returned by FromBig for negative inputs.
	ErrNegative = errors.New("safecast: negative value")
	// ErrExceeds256Bits is returned by FromBig when the input needs more than 256 bits.
	ErrExceeds256Bits = &WidthError{bits: 256}
)

// ErrExceedsNBits is returned by Narrow and the ToUintN helpers when a value needs more than N bits.
var (
	ErrExceeds8Bits   = &WidthError{bits: 8}
	ErrExceeds16Bits  = &WidthError{bits: 16}
	ErrExceeds24Bits  = &WidthError{bits: 24}
	ErrExceeds32Bits  = &WidthError{bits: 32}
	ErrExceeds40Bits  = &WidthError{bits: 40}
	ErrExceeds48Bits  = &WidthError{bits: 48}
	ErrExceeds56Bits  = &WidthError{bits: 56}
	ErrExceeds64Bits  = &WidthError{bits: 64}
	ErrExceeds72Bits  = &WidthError{bits: 72}
	ErrExceeds80Bits  = &WidthError{bits: 80}
	ErrExceeds88Bits  = &WidthError{bits: 88}
	ErrExceeds96Bits  = &WidthError{bits: 96}
	ErrExceeds104Bits = &WidthError{bits: 104}
	ErrExceeds112Bits = &WidthError{bits: 112}
	ErrExceeds120Bits = &WidthError{bits: 120}
	ErrExceeds128Bits = &WidthError{bits: 128}
	ErrExceeds136Bits = &WidthError{bits: 136}
	ErrExceeds144Bits = &WidthError{bits: 144}
	ErrExceeds152Bits = &WidthError{bits: 152}
	ErrExceeds160Bits = &WidthError{bits: 160}
	ErrExceeds168Bits = &WidthError{bits: 168}
	ErrExceeds176Bits = &WidthError{bits: 176}
	ErrExceeds184Bits = &WidthError{bits: 184}
	ErrExceeds192Bits = &WidthError{bits: 192}
	ErrExceeds200Bits = &WidthError{bits: 200}
	ErrExceeds208Bits = &WidthError{bits: 208}
	ErrExceeds216Bits = &WidthError{bits: 216}
	ErrExceeds224Bits = &WidthError{bits: 224}
	ErrExceeds232Bits = &WidthError{bits: 232}
	ErrExceeds240Bits = &WidthError{bits: 240}
	ErrExceeds248Bits = &WidthError{bits: 248}
)

// widthErrors is indexed by Width/8 - 1.
var widthErrors = [...]*WidthError{
	ErrExceeds8Bits, ErrExceeds16Bits, ErrExceeds24Bits, ErrExceeds32Bits,
	ErrExceeds40Bits, ErrExceeds48Bits, ErrExceeds56Bits, ErrExceeds64Bits,
	ErrExceeds72Bits, ErrExceeds80Bits, ErrExceeds88Bits, ErrExceeds96Bits,
	ErrExceeds104Bits, ErrExceeds112Bits, ErrExceeds120Bits, ErrExceeds128Bits,
	ErrExceeds136Bits, ErrExceeds144Bits, ErrExceeds152Bits, ErrExceeds160Bits,
	ErrExceeds168Bits, ErrExceeds176Bits, ErrExceeds184Bits, ErrExceeds192Bits,
	ErrExceeds200Bits, ErrExceeds208Bits, ErrExceeds216Bits, ErrExceeds224Bits,
	ErrExceeds232Bits, ErrExceeds240Bits, ErrExceeds248Bits,
}

// ErrForWidth returns the sentinel reported when a value exceeds w, or nil for an invalid width.
func ErrForWidth(w Width) error {
	if !w.Valid() {
		return nil
	}
	return widthErrors[w/8-1]
}
