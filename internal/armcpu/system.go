// Package armcpu implements the CPU: register file, CPSR, memory-backed
// fetch/decode/execute loop, and the per-category instruction handlers.
package armcpu

import (
	"fmt"

	"github.com/DaGuich/armcore/internal/armerr"
	"github.com/DaGuich/armcore/internal/armisa"
	"github.com/DaGuich/armcore/internal/armmem"
)

// TraceFunc is invoked once per retired instruction, after it executes but
// before the next fetch, with the address it was fetched from and its
// disassembly text. It never affects Step's outcome.
type TraceFunc func(pc uint32, text string)

// System owns the sixteen general-purpose registers, the N/Z/C/V flags,
// and the memory the core executes against.
type System struct {
	regs [16]uint32
	n, z, c, v bool
	mem   *armmem.Memory
	Trace TraceFunc
	cache *armisa.DecodeCache
	coprocessors map[uint8]Coprocessor
}

// New returns a System with all registers and flags zeroed, backed by mem.
func New(mem *armmem.Memory) *System {
	return &System{mem: mem}
}

// EnableDecodeCache turns on caching of decoded instructions by their raw
// fetch word. Off by default; worth enabling for images that spend most of
// their time re-executing a small working set of addresses, such as a
// tight polling or interrupt-wait loop.
func (s *System) EnableDecodeCache() {
	s.cache = armisa.NewDecodeCache()
}

// Memory returns the System's backing memory.
func (s *System) Memory() *armmem.Memory {
	return s.mem
}

// GetRegister returns the raw value currently stored in register r. It
// does not apply the PC-observed-as-address+8 rule; handlers that read a
// register naming r15 apply that adjustment themselves, exactly where the
// architecture specifies it (operand2 and base-address evaluation), since
// the bare value is what Step itself needs for fetch and for r15 writes.
func (s *System) GetRegister(r armisa.Register) (uint32, error) {
	return s.regs[r&0xf], nil
}

// SetRegister stores value into register r.
func (s *System) SetRegister(r armisa.Register, value uint32) {
	s.regs[r&0xf] = value
}

// PC is a convenience accessor for register 15's raw value.
func (s *System) PC() uint32 { return s.regs[armisa.PC] }

// SetPC is a convenience accessor for overwriting register 15.
func (s *System) SetPC(value uint32) { s.regs[armisa.PC] = value }

func (s *System) Negative() bool { return s.n }
func (s *System) Zero() bool     { return s.z }
func (s *System) Carry() bool    { return s.c }
func (s *System) Overflow() bool { return s.v }

func (s *System) SetNegative(v bool) { s.n = v }
func (s *System) SetZero(v bool)     { s.z = v }
func (s *System) SetCarry(v bool)    { s.c = v }
func (s *System) SetOverflow(v bool) { s.v = v }

// CPSR packs the four tracked flags into bits [31:28] the way the real
// status register does, with all other bits read as zero, so a value from
// CPSR round-trips exactly through SetCPSR.
func (s *System) CPSR() uint32 {
	var v uint32
	if s.n {
		v |= 0x80000000
	}
	if s.z {
		v |= 0x40000000
	}
	if s.c {
		v |= 0x20000000
	}
	if s.v {
		v |= 0x10000000
	}
	return v
}

// SetCPSR sets the four tracked flags from bits [31:28] of value, ignoring
// all other bits. Used to implement the "snapshot before evaluating an
// opcode, restore unless S is set" strategy data processing handling uses,
// and by flags-only MSR.
func (s *System) SetCPSR(value uint32) {
	s.n = value&0x80000000 != 0
	s.z = value&0x40000000 != 0
	s.c = value&0x20000000 != 0
	s.v = value&0x10000000 != 0
}

// Outcome reports what Step observed about the instruction it just
// retired (or declined to fetch).
type Outcome int

const (
	// Continue means execution should proceed with the next instruction.
	Continue Outcome = iota
	// Halted means the instruction Step just retired left PC at 0, the
	// conventional "return to address zero" exit condition.
	Halted
)

func (o Outcome) String() string {
	if o == Halted {
		return "halted"
	}
	return "continue"
}

// Step fetches, decodes and executes one instruction. PC is incremented by
// 4 before the instruction is dispatched (so a branch handler simply
// overwrites it; any other handler leaves it alone), matching the
// reference core's sequencing. The halt check happens after the
// instruction retires, not before the fetch: starting execution at
// address 0 (RunFrom(0)) runs the instruction there like any other
// address, but a handler that leaves PC at 0, the conventional way a run
// ends, makes this Step the last one, so the next instruction at 0 is
// never fetched.
func (s *System) Step() (Outcome, error) {
	pc := s.PC()
	raw, err := s.mem.ReadWord(pc)
	if err != nil {
		return Continue, err
	}
	decode := armisa.Decode
	if s.cache != nil {
		decode = s.cache.Decode
	}
	inst, err := decode(raw)
	if err != nil {
		return Continue, &armerr.Decode{PC: pc, Raw: raw}
	}
	s.SetPC(pc + 4)
	if err := s.dispatch(pc, inst); err != nil {
		s.SetPC(pc)
		return Continue, err
	}
	if s.Trace != nil {
		s.Trace(pc, inst.String())
	}
	if s.PC() == 0 {
		return Halted, nil
	}
	return Continue, nil
}

// RunOptions bounds a RunFrom call so a host never has to build its own
// step-counting loop around Step.
type RunOptions struct {
	// MaxSteps caps the number of instructions executed; 0 means
	// unbounded.
	MaxSteps int
	// HaltAddress, if non-nil, stops execution as soon as PC equals this
	// address, before fetching at it.
	HaltAddress *uint32
}

// RunFrom sets PC to addr and calls Step until it returns a non-Continue
// Outcome, Step errors, the instruction budget in opts is exhausted, or PC
// equals opts.HaltAddress.
func (s *System) RunFrom(addr uint32, opts *RunOptions) error {
	s.SetPC(addr)
	steps := 0
	for {
		if opts != nil && opts.HaltAddress != nil && s.PC() == *opts.HaltAddress {
			return nil
		}
		if opts != nil && opts.MaxSteps > 0 && steps >= opts.MaxSteps {
			return fmt.Errorf("exceeded instruction budget of %d", opts.MaxSteps)
		}
		outcome, err := s.Step()
		if err != nil {
			return err
		}
		if outcome != Continue {
			return nil
		}
		steps++
	}
}

func (s *System) dispatch(pc uint32, inst armisa.Instruction) error {
	switch n := inst.(type) {
	case armisa.DataProcessing:
		return s.execDataProcessing(n)
	case armisa.PSRTransfer:
		return s.execPSRTransfer(n)
	case armisa.Multiply:
		return s.execMultiply(n)
	case armisa.SingleDataSwap:
		return s.execSingleDataSwap(n)
	case armisa.BranchExchange:
		return s.execBranchExchange(n)
	case armisa.HalfwordTransfer:
		return s.execHalfwordTransfer(n)
	case armisa.SingleTransfer:
		return s.execSingleTransfer(n)
	case armisa.BlockTransfer:
		return s.execBlockTransfer(n)
	case armisa.Branch:
		return s.execBranch(n)
	case armisa.SoftwareInterrupt:
		return &armerr.Unsupported{PC: pc, Raw: inst.Raw(), Reason: "no interrupt vector table"}
	case armisa.Coprocessor:
		if !n.Cond().Met(s) {
			return nil
		}
		if hook := s.coprocessors[coprocessorNumber(n.Raw())]; hook != nil {
			return hook.Execute(s, n.Raw())
		}
		return &armerr.Unsupported{PC: pc, Raw: inst.Raw(), Reason: "no coprocessor attached for this number"}
	}
	return fmt.Errorf("unreachable: unhandled instruction type %T", inst)
}
