// Package armmem implements the fixed-size, byte-addressable memory image
// the emulator core reads and writes. It is little-endian by default,
// composes halfword/word access from byte access, and masks sub-word
// addresses to their natural alignment rather than rejecting them —
// matching the original implementation's behavior (see SPEC_FULL.md §4.2).
package armmem

import "github.com/DaGuich/armcore/internal/armerr"

// DefaultCapacity is the memory size used when a caller doesn't specify
// one, matching the source program's convention.
const DefaultCapacity = 65536

// Memory is a fixed-capacity linear byte array. Its length is set at
// construction and never changes.
type Memory struct {
	data        []byte
	isBigEndian bool
}

// New returns a Memory of the given capacity, zero-filled.
func New(capacity uint32) *Memory {
	return &Memory{data: make([]byte, capacity)}
}

// NewFromImage returns a Memory of the given capacity with image copied in
// starting at address 0 and the remainder zero-filled. It returns
// *armerr.OutOfBounds if image is longer than capacity.
func NewFromImage(image []byte, capacity uint32) (*Memory, error) {
	if uint32(len(image)) > capacity {
		return nil, &armerr.OutOfBounds{Address: capacity, Width: armerr.Byte}
	}
	m := New(capacity)
	copy(m.data, image)
	return m, nil
}

// Len returns the memory's fixed capacity in bytes.
func (m *Memory) Len() uint32 {
	return uint32(len(m.data))
}

// SetBigEndian toggles the endianness used by halfword/word accessors.
func (m *Memory) SetBigEndian(bigEndian bool) {
	m.isBigEndian = bigEndian
}

// IsBigEndian reports the current endianness.
func (m *Memory) IsBigEndian() bool {
	return m.isBigEndian
}

func (m *Memory) checkBounds(address uint32, width armerr.Width) error {
	if uint64(address)+uint64(width) > uint64(len(m.data)) {
		return &armerr.OutOfBounds{Address: address, Width: width}
	}
	return nil
}

// ReadByte returns the byte at address.
func (m *Memory) ReadByte(address uint32) (uint8, error) {
	if e := m.checkBounds(address, armerr.Byte); e != nil {
		return 0, e
	}
	return m.data[address], nil
}

// WriteByte stores value at address.
func (m *Memory) WriteByte(address uint32, value uint8) error {
	if e := m.checkBounds(address, armerr.Byte); e != nil {
		return e
	}
	m.data[address] = value
	return nil
}

// ReadHalf returns the halfword at address, masked down to even alignment.
func (m *Memory) ReadHalf(address uint32) (uint16, error) {
	address &^= 1
	if e := m.checkBounds(address, armerr.Half); e != nil {
		return 0, e
	}
	b0, b1 := m.data[address], m.data[address+1]
	if m.isBigEndian {
		return uint16(b0)<<8 | uint16(b1), nil
	}
	return uint16(b1)<<8 | uint16(b0), nil
}

// WriteHalf stores the low 16 bits of value at address, masked down to
// even alignment.
func (m *Memory) WriteHalf(address uint32, value uint16) error {
	address &^= 1
	if e := m.checkBounds(address, armerr.Half); e != nil {
		return e
	}
	if m.isBigEndian {
		m.data[address] = byte(value >> 8)
		m.data[address+1] = byte(value)
	} else {
		m.data[address] = byte(value)
		m.data[address+1] = byte(value >> 8)
	}
	return nil
}

// ReadWord returns the word at address, masked down to 4-byte alignment.
func (m *Memory) ReadWord(address uint32) (uint32, error) {
	address &^= 3
	if e := m.checkBounds(address, armerr.Word); e != nil {
		return 0, e
	}
	b := m.data[address : address+4]
	if m.isBigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]), nil
}

// WriteWord stores value at address, masked down to 4-byte alignment.
func (m *Memory) WriteWord(address uint32, value uint32) error {
	address &^= 3
	if e := m.checkBounds(address, armerr.Word); e != nil {
		return e
	}
	b := m.data[address : address+4]
	if m.isBigEndian {
		b[0] = byte(value >> 24)
		b[1] = byte(value >> 16)
		b[2] = byte(value >> 8)
		b[3] = byte(value)
	} else {
		b[0] = byte(value)
		b[1] = byte(value >> 8)
		b[2] = byte(value >> 16)
		b[3] = byte(value >> 24)
	}
	return nil
}

// Slice returns a read-only borrow of [offset, offset+length) for a host
// to render (e.g. a framebuffer region). The caller must not call any
// Write* method on this Memory while holding the returned slice (§5).
func (m *Memory) Slice(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return nil, &armerr.OutOfBounds{Address: offset, Width: armerr.Width(length)}
	}
	return m.data[offset : offset+length : offset+length], nil
}
