// Package armerr defines the error taxonomy the emulation core surfaces
// through Step: out-of-bounds memory access, misaligned access, decode
// failure, and recognized-but-unimplemented encodings. Each kind is a
// distinct type carrying the fields a caller needs to report or recover,
// grouped the way github.com/ezrec/ucapp/cpu groups its sentinel and
// struct errors by category.
package armerr

import "fmt"

// Width names the access size involved in a memory error.
type Width uint8

const (
	Byte Width = 1
	Half Width = 2
	Word Width = 4
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case Half:
		return "halfword"
	case Word:
		return "word"
	}
	return "unknown-width"
}

// OutOfBounds is returned when a load/store targets an address at or past
// memory capacity, or construction was asked for an image larger than
// capacity.
type OutOfBounds struct {
	Address uint32
	Width   Width
}

func (e *OutOfBounds) Error() string {
	return fmt.Sprintf("address 0x%08x (%s) is out of bounds", e.Address, e.Width)
}

// Unaligned is returned when a memory implementation is configured to
// reject sub-word accesses instead of masking them. The default
// armmem.Memory never returns this; it is defined so a stricter mode can
// return it without changing the interface.
type Unaligned struct {
	Address uint32
	Width   Width
}

func (e *Unaligned) Error() string {
	return fmt.Sprintf("address 0x%08x is not aligned for a %s access", e.Address, e.Width)
}

// Decode is returned when a 32-bit word does not match any supported
// instruction category.
type Decode struct {
	PC  uint32
	Raw uint32
}

func (e *Decode) Error() string {
	return fmt.Sprintf("0x%08x: no decoding matches instruction word 0x%08x", e.PC, e.Raw)
}

// Unsupported is returned when a recognized category has no implemented
// semantics for the specific sub-encoding (SWI, full coprocessor ops, PSR
// mode-bit writes, Thumb-mode branch-exchange).
type Unsupported struct {
	PC     uint32
	Raw    uint32
	Reason string
}

func (e *Unsupported) Error() string {
	return fmt.Sprintf("0x%08x: unsupported instruction 0x%08x (%s)", e.PC, e.Raw, e.Reason)
}
