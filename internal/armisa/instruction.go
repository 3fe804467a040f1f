package armisa

import (
	"fmt"

	"github.com/DaGuich/armcore/internal/bits"
)

// Instruction is any decoded ARM instruction word. Raw is always the
// original 32-bit encoding; Cond is always extracted the same way
// regardless of category.
type Instruction interface {
	fmt.Stringer
	Raw() uint32
	Cond() Condition
}

type base struct {
	raw  uint32
	cond Condition
}

func (b base) Raw() uint32    { return b.raw }
func (b base) Cond() Condition { return b.cond }

// DataProcessing covers the sixteen ALU opcodes (AND..MVN) with either an
// immediate or register (optionally shifted) second operand.
type DataProcessing struct {
	base
	Opcode      Opcode
	Rd, Rn, Rm  Register
	Shift       ShiftSpec
	Immediate   uint8
	Rotate      uint8
	SetFlags    bool
	IsImmediate bool
}

// Operand2Immediate returns the rotated 32-bit immediate this
// instruction's operand2 encodes, along with the carry-out the rotation
// produces (used when S is set and the shifter's carry-out feeds C).
func (i DataProcessing) Operand2Immediate() (value uint32, carryOut bool) {
	rot := i.Rotate * 2
	if rot == 0 {
		return uint32(i.Immediate), false
	}
	v := uint32(i.Immediate)
	value = (v >> rot) | (v << (32 - rot))
	return value, value&0x80000000 != 0
}

func (i DataProcessing) operand2String() string {
	if i.IsImmediate {
		v, _ := i.Operand2Immediate()
		return fmt.Sprintf("#%d", v)
	}
	s := i.Rm.String()
	if shift := i.Shift.String(); shift != "" {
		s += " " + shift
	}
	return s
}

func (i DataProcessing) String() string {
	mnemonic := i.Opcode.String() + i.cond.String()
	switch i.Opcode {
	case MOV, MVN:
		if i.SetFlags {
			mnemonic += "s"
		}
		return fmt.Sprintf("%s %s, %s", mnemonic, i.Rd, i.operand2String())
	case TST, TEQ, CMP, CMN:
		return fmt.Sprintf("%s %s, %s", mnemonic, i.Rn, i.operand2String())
	}
	if i.SetFlags {
		mnemonic += "s"
	}
	return fmt.Sprintf("%s %s, %s, %s", mnemonic, i.Rd, i.Rn, i.operand2String())
}

// PSRTransfer covers MRS (read CPSR/SPSR into a register) and the
// flags-only subset of MSR this core supports (writing N/Z/C/V from a
// register or rotated immediate). Non-flags MSR (mode bits) decodes but is
// rejected at execution time.
type PSRTransfer struct {
	base
	Rd, Rm      Register
	WritePSR    bool
	UseCPSR     bool
	FlagsOnly   bool
	IsImmediate bool
	Immediate   uint8
	Rotate      uint8
}

func (i PSRTransfer) psrName() string {
	if i.UseCPSR {
		return "cpsr"
	}
	return "spsr"
}

func (i PSRTransfer) String() string {
	if !i.WritePSR {
		return fmt.Sprintf("mrs%s %s, %s", i.cond, i.Rd, i.psrName())
	}
	if !i.FlagsOnly {
		return fmt.Sprintf("msr%s %s, %s", i.cond, i.Rm, i.psrName())
	}
	if i.IsImmediate {
		rot := uint32(i.Rotate) * 2
		v := uint32(i.Immediate)
		if rot != 0 {
			v = (v >> rot) | (v << (32 - rot))
		}
		return fmt.Sprintf("msr%s %s_flg, #%d", i.cond, i.psrName(), v)
	}
	return fmt.Sprintf("msr%s %s_flg, %s", i.cond, i.psrName(), i.Rm)
}

// Multiply covers MUL/MLA and the signed/unsigned long multiply variants
// UMULL/UMLAL/SMULL/SMLAL.
type Multiply struct {
	base
	Long                  bool
	Signed                bool
	Accumulate            bool
	SetFlags              bool
	Rm, Rs, Rn, Rd         Register
	RdLo, RdHi             Register
}

func (i Multiply) String() string {
	var m string
	if i.Accumulate {
		m = "mla"
	} else {
		m = "mul"
	}
	if i.Long {
		if i.Signed {
			m = "s" + m + "l"
		} else {
			m = "u" + m + "l"
		}
	}
	m += i.cond.String()
	if i.SetFlags {
		m += "s"
	}
	if i.Long {
		return fmt.Sprintf("%s %s, %s, %s, %s", m, i.RdLo, i.RdHi, i.Rm, i.Rs)
	}
	if !i.Accumulate {
		return fmt.Sprintf("%s %s, %s, %s", m, i.Rd, i.Rm, i.Rs)
	}
	return fmt.Sprintf("%s %s, %s, %s, %s", m, i.Rd, i.Rm, i.Rs, i.Rn)
}

// SingleDataSwap is SWP/SWPB: an atomic load from [Rn] into Rd followed by
// a store of Rm to [Rn].
type SingleDataSwap struct {
	base
	Rm, Rn, Rd Register
	Byte       bool
}

func (i SingleDataSwap) String() string {
	m := "swp" + i.cond.String()
	if i.Byte {
		m += "b"
	}
	return fmt.Sprintf("%s %s, %s, [%s]", m, i.Rd, i.Rm, i.Rn)
}

// BranchExchange is BX: branch to the address in Rn, with bit 0 signaling
// a Thumb-mode request this core does not support.
type BranchExchange struct {
	base
	Rn Register
}

func (i BranchExchange) String() string {
	return fmt.Sprintf("bx%s %s", i.cond, i.Rn)
}

// HalfwordTransfer covers LDRH/STRH/LDRSB/LDRSH and their immediate- and
// register-offset addressing modes.
type HalfwordTransfer struct {
	base
	Rn, Rd, Rm  Register
	IsImmediate bool
	Offset      uint8
	Halfword    bool
	Signed      bool
	Load        bool
	WriteBack   bool
	Up          bool
	Preindex    bool
}

func (i HalfwordTransfer) String() string {
	m := "ldr"
	if !i.Load {
		m = "str"
	}
	m += i.cond.String()
	if i.Signed {
		m += "s"
	}
	if i.Halfword {
		m += "h"
	} else {
		m += "b"
	}
	addr := addressingString(i.Rn, i.Rm.String(), int32(i.Offset), i.IsImmediate,
		i.Up, i.Preindex, i.WriteBack, ShiftSpec{})
	return fmt.Sprintf("%s %s, %s", m, i.Rd, addr)
}

// SingleTransfer covers LDR/STR and their byte-quantity variants, with
// immediate or (optionally shifted) register offsets.
type SingleTransfer struct {
	base
	Rn, Rd, Rm      Register
	Shift           ShiftSpec
	Offset          uint16
	Load            bool
	WriteBack       bool
	Byte            bool
	Up              bool
	Preindex        bool
	ImmediateOffset bool
}

func (i SingleTransfer) String() string {
	m := "ldr"
	if !i.Load {
		m = "str"
	}
	m += i.cond.String()
	if i.Byte {
		m += "b"
	}
	if !i.Preindex && i.WriteBack {
		m += "t"
	}
	addr := addressingString(i.Rn, i.Rm.String(), int32(i.Offset), i.ImmediateOffset,
		i.Up, i.Preindex, i.WriteBack, i.Shift)
	return fmt.Sprintf("%s %s, %s", m, i.Rd, addr)
}

func addressingString(rn Register, rm string, offset int32, isImmediate, up,
	preindex, writeBack bool, shift ShiftSpec) string {
	sign := ""
	if !up {
		sign = "-"
	}
	shiftStr := ""
	if !isImmediate {
		if s := shift.String(); s != "" {
			shiftStr = ", " + s
		}
	}
	if preindex {
		postfix := ""
		if writeBack {
			postfix = "!"
		}
		if isImmediate {
			if offset == 0 {
				return fmt.Sprintf("[%s]%s", rn, postfix)
			}
			return fmt.Sprintf("[%s, %s%d]%s", rn, sign, offset, postfix)
		}
		return fmt.Sprintf("[%s, %s%s%s]%s", rn, sign, rm, shiftStr, postfix)
	}
	if isImmediate {
		return fmt.Sprintf("[%s], %s%d", rn, sign, offset)
	}
	return fmt.Sprintf("[%s], %s%s%s", rn, sign, rm, shiftStr)
}

// BlockTransfer is LDM/STM: a load or store of the registers named in
// RegisterList to/from consecutive words based at Rn.
type BlockTransfer struct {
	base
	RegisterList uint16
	Rn           Register
	Load         bool
	WriteBack    bool
	ForceUser    bool
	Up           bool
	Preindex     bool
}

func (i BlockTransfer) listString() string {
	s := "{"
	consecutive := uint8(0)
	regs := i.RegisterList
	for n := uint8(0); n < 17; n++ {
		if regs&1 == 1 {
			consecutive++
		} else if consecutive != 0 {
			start := n - consecutive
			end := n - 1
			consecutive = 0
			if s[len(s)-1] != '{' {
				s += ", "
			}
			if start == end {
				s += NewRegister(end).String()
			} else {
				s += fmt.Sprintf("r%d-r%d", start, end)
			}
		}
		regs >>= 1
	}
	return s + "}"
}

func (i BlockTransfer) String() string {
	m := "ldm"
	if !i.Load {
		m = "stm"
	}
	if i.Rn == SP {
		if i.Up {
			if i.Preindex {
				m += "ed"
			} else {
				m += "fd"
			}
		} else {
			if i.Preindex {
				m += "ea"
			} else {
				m += "fa"
			}
		}
	} else {
		if i.Up {
			m += "i"
		} else {
			m += "d"
		}
		if i.Preindex {
			m += "b"
		} else {
			m += "a"
		}
	}
	m += " " + i.Rn.String()
	if i.WriteBack {
		m += "!"
	}
	m += ", " + i.listString()
	if i.ForceUser {
		m += "^"
	}
	return m
}

// Branch is B/BL: a PC-relative jump with an optional link (saving the
// return address in LR).
type Branch struct {
	base
	Offset int32
	Link   bool
}

func (i Branch) String() string {
	m := "b"
	if i.Link {
		m += "l"
	}
	m += i.cond.String()
	return fmt.Sprintf("%s %d", m, i.Offset<<2)
}

// SoftwareInterrupt is SWI: decodes successfully but always executes as
// Unsupported, since no interrupt vector table exists in this core.
type SoftwareInterrupt struct {
	base
	Comment uint32
}

func (i SoftwareInterrupt) String() string {
	return fmt.Sprintf("swi%s %06x", i.cond, i.Comment)
}

// Coprocessor is any coprocessor data-operation, data-transfer or
// register-transfer encoding. The decoder does not break it into fields;
// armcpu runs it only through a hook attached for its coprocessor number
// and otherwise reports it as Unsupported rather than as a Decode error.
type Coprocessor struct {
	base
}

func (i Coprocessor) String() string {
	return fmt.Sprintf("<coprocessor %08x>", i.raw)
}

func condOf(raw uint32) Condition { return NewCondition(raw) }

func newBase(raw uint32) base {
	return base{raw: raw, cond: condOf(raw)}
}

const (
	maskBranchExchange uint32 = 0x0ffffff0
	setBranchExchange  uint32 = 0x012fff10
	maskPSRTransfer    uint32 = 0x0d980000
	setPSRTransfer     uint32 = 0x01080000
	maskUndefined      uint32 = 0x0e000010
	setUndefined       uint32 = 0x06000010
)

// Decode examines a 32-bit instruction word and returns the typed
// Instruction it encodes, or an error if the word matches no supported
// category.
func Decode(raw uint32) (Instruction, error) {
	if bits.Test(raw, 27) {
		if bits.Test(raw, 26) {
			if bits.Test(raw, 25) && bits.Test(raw, 24) {
				return SoftwareInterrupt{newBase(raw), raw & 0x00ffffff}, nil
			}
			return Coprocessor{newBase(raw)}, nil
		}
		if bits.Test(raw, 25) {
			return decodeBranch(raw), nil
		}
		return decodeBlockTransfer(raw), nil
	}
	if bits.Test(raw, 26) {
		if (raw & maskUndefined) == setUndefined {
			return nil, fmt.Errorf("no decoding matches instruction word 0x%08x", raw)
		}
		return decodeSingleTransfer(raw), nil
	}
	if (raw & maskBranchExchange) == setBranchExchange {
		return decodeBranchExchange(raw), nil
	}
	if raw&0xf0 == 0x90 {
		if (raw & 0x0fb00f00) == 0x01000000 {
			return decodeSingleDataSwap(raw), nil
		}
		if (raw&0x0fc00000) == 0 || (raw&0x0f800000) == 0x00800000 {
			return decodeMultiply(raw)
		}
	}
	if (raw&0x0e400f90) == 0x00000090 || (raw&0x0e400090) == 0x00400090 {
		return decodeHalfwordTransfer(raw), nil
	}
	if !bits.Test(raw, 20) && (raw&maskPSRTransfer) == setPSRTransfer {
		return decodePSRTransfer(raw), nil
	}
	return decodeDataProcessing(raw), nil
}

func decodeDataProcessing(raw uint32) Instruction {
	var i DataProcessing
	i.base = newBase(raw)
	i.SetFlags = bits.Test(raw, 20)
	i.IsImmediate = bits.Test(raw, 25)
	if i.IsImmediate {
		i.Immediate = uint8(raw & 0xff)
		i.Rotate = uint8(bits.Extract(raw, 11, 8))
	} else {
		i.Rm = NewRegister(uint8(raw & 0xf))
		i.Shift = NewShiftSpec(uint8(bits.Extract(raw, 11, 4)))
	}
	i.Rd = NewRegister(uint8(bits.Extract(raw, 15, 12)))
	i.Rn = NewRegister(uint8(bits.Extract(raw, 19, 16)))
	i.Opcode = NewOpcode(uint8(bits.Extract(raw, 24, 21)))
	return i
}

func decodePSRTransfer(raw uint32) Instruction {
	var i PSRTransfer
	i.base = newBase(raw)
	i.UseCPSR = !bits.Test(raw, 22)
	i.WritePSR = bits.Test(raw, 21)
	if i.WritePSR {
		i.Rm = NewRegister(uint8(raw & 0xf))
		i.FlagsOnly = !bits.Test(raw, 16)
		if i.FlagsOnly {
			i.IsImmediate = bits.Test(raw, 25)
			if i.IsImmediate {
				i.Immediate = uint8(raw & 0xff)
				i.Rotate = uint8(bits.Extract(raw, 11, 8))
			}
		}
	} else {
		i.Rd = NewRegister(uint8(bits.Extract(raw, 15, 12)))
	}
	return i
}

func decodeMultiply(raw uint32) (Instruction, error) {
	var i Multiply
	i.base = newBase(raw)
	i.Long = bits.Test(raw, 23)
	rm := uint8(raw & 0xf)
	rs := uint8(bits.Extract(raw, 11, 8))
	rn := uint8(bits.Extract(raw, 15, 12))
	rd := uint8(bits.Extract(raw, 19, 16))
	if rm == 15 || rs == 15 || rd == 15 {
		return nil, fmt.Errorf("multiply cannot use pc")
	}
	i.Rm, i.Rs, i.Rn, i.Rd = NewRegister(rm), NewRegister(rs), NewRegister(rn), NewRegister(rd)
	i.SetFlags = bits.Test(raw, 20)
	i.Accumulate = bits.Test(raw, 21)
	if i.Long || i.Accumulate {
		if rn == 15 {
			return nil, fmt.Errorf("multiply cannot use pc")
		}
	}
	if i.Long {
		i.Signed = bits.Test(raw, 22)
		i.RdLo, i.RdHi = i.Rn, i.Rd
	}
	return i, nil
}

func decodeSingleDataSwap(raw uint32) Instruction {
	var i SingleDataSwap
	i.base = newBase(raw)
	i.Rm = NewRegister(uint8(raw & 0xf))
	i.Rd = NewRegister(uint8(bits.Extract(raw, 15, 12)))
	i.Rn = NewRegister(uint8(bits.Extract(raw, 19, 16)))
	i.Byte = bits.Test(raw, 22)
	return i
}

func decodeBranchExchange(raw uint32) Instruction {
	return BranchExchange{newBase(raw), NewRegister(uint8(raw & 0xf))}
}

func decodeHalfwordTransfer(raw uint32) Instruction {
	var i HalfwordTransfer
	i.base = newBase(raw)
	i.IsImmediate = bits.Test(raw, 22)
	if i.IsImmediate {
		i.Offset = uint8((raw & 0xf) | ((raw >> 4) & 0xf0))
	} else {
		i.Rm = NewRegister(uint8(raw & 0xf))
	}
	i.Halfword = bits.Test(raw, 5)
	i.Signed = bits.Test(raw, 6)
	i.Rd = NewRegister(uint8(bits.Extract(raw, 15, 12)))
	i.Rn = NewRegister(uint8(bits.Extract(raw, 19, 16)))
	i.Load = bits.Test(raw, 20)
	i.WriteBack = bits.Test(raw, 21)
	i.Up = bits.Test(raw, 23)
	i.Preindex = bits.Test(raw, 24)
	return i
}

func decodeSingleTransfer(raw uint32) Instruction {
	var i SingleTransfer
	i.base = newBase(raw)
	i.ImmediateOffset = !bits.Test(raw, 25)
	if !i.ImmediateOffset {
		i.Shift = NewShiftSpec(uint8(bits.Extract(raw, 11, 4)))
		i.Rm = NewRegister(uint8(raw & 0xf))
	} else {
		i.Offset = uint16(raw & 0xfff)
	}
	i.Rd = NewRegister(uint8(bits.Extract(raw, 15, 12)))
	i.Rn = NewRegister(uint8(bits.Extract(raw, 19, 16)))
	i.Load = bits.Test(raw, 20)
	i.WriteBack = bits.Test(raw, 21)
	i.Byte = bits.Test(raw, 22)
	i.Up = bits.Test(raw, 23)
	i.Preindex = bits.Test(raw, 24)
	return i
}

func decodeBlockTransfer(raw uint32) Instruction {
	var i BlockTransfer
	i.base = newBase(raw)
	i.RegisterList = uint16(raw & 0xffff)
	i.Rn = NewRegister(uint8(bits.Extract(raw, 19, 16)))
	i.Load = bits.Test(raw, 20)
	i.WriteBack = bits.Test(raw, 21)
	i.ForceUser = bits.Test(raw, 22)
	i.Up = bits.Test(raw, 23)
	i.Preindex = bits.Test(raw, 24)
	return i
}

func decodeBranch(raw uint32) Instruction {
	var i Branch
	i.base = newBase(raw)
	i.Offset = bits.SignExtend(raw&0x00ffffff, 24)
	i.Link = bits.Test(raw, 24)
	return i
}
