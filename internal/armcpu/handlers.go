package armcpu

import (
	"fmt"

	"github.com/DaGuich/armcore/internal/armerr"
	"github.com/DaGuich/armcore/internal/armisa"
)

// readOperandRegister reads r, applying the architectural PC-observed-as-
// address+8 quirk: by the time a handler runs, PC already holds
// fetch-address+4 (Step's pre-dispatch increment), so reading r15 as an
// operand adds another 4 on top of that.
func (s *System) readOperandRegister(r armisa.Register) uint32 {
	v, _ := s.GetRegister(r)
	if r == armisa.PC {
		v += 4
	}
	return v
}

func (s *System) execDataProcessing(n armisa.DataProcessing) error {
	if !n.Cond().Met(s) {
		return nil
	}
	previous := s.CPSR()

	var operand2 uint32
	var shifterCarry bool
	var shifterCarryValid bool
	if n.IsImmediate {
		var carryOut bool
		operand2, carryOut = n.Operand2Immediate()
		shifterCarryValid = n.Rotate != 0
		shifterCarry = carryOut
	} else {
		rmValue, _ := s.GetRegister(n.Rm)
		if n.Rm == armisa.PC {
			rmValue += 4
			if n.Shift.UseRegister {
				rmValue += 4
			}
		}
		result, carryOut, affected, err := n.Shift.Apply(rmValue, s.Carry(), s)
		if err != nil {
			return fmt.Errorf("invalid second operand: %w", err)
		}
		operand2 = result
		shifterCarry = carryOut
		shifterCarryValid = affected
	}

	operand1 := s.readOperandRegister(n.Rn)

	r := n.Opcode.Compute(operand1, operand2, s.Carry())
	if !r.CarryValid && shifterCarryValid {
		r.Carry = shifterCarry
		r.CarryValid = true
	}

	if n.Opcode.WritesResult() {
		s.SetRegister(n.Rd, r.Value)
		if n.Rd == armisa.PC && n.SetFlags {
			// A flag-setting write to r15 would restore SPSR on real
			// hardware; this core has no privilege modes or SPSR, so it
			// simply leaves CPSR as computed below.
		}
	}
	if n.SetFlags {
		s.SetNegative(r.Negative)
		s.SetZero(r.Zero)
		if r.CarryValid {
			s.SetCarry(r.Carry)
		}
		if r.OverflowValid {
			s.SetOverflow(r.Overflow)
		}
	} else {
		s.SetCPSR(previous)
	}
	return nil
}

func (s *System) execPSRTransfer(n armisa.PSRTransfer) error {
	if !n.Cond().Met(s) {
		return nil
	}
	if !n.WritePSR {
		if n.Rd == armisa.PC {
			return fmt.Errorf("mrs cannot target pc")
		}
		s.SetRegister(n.Rd, s.CPSR())
		return nil
	}
	if !n.UseCPSR {
		return &armerr.Unsupported{Raw: n.Raw(), Reason: "spsr is not modeled without privilege modes"}
	}
	if !n.FlagsOnly {
		return &armerr.Unsupported{Raw: n.Raw(), Reason: "msr of mode/control bits is not supported"}
	}
	var value uint32
	if n.IsImmediate {
		rot := uint32(n.Rotate) * 2
		v := uint32(n.Immediate)
		if rot != 0 {
			v = (v >> rot) | (v << (32 - rot))
		}
		value = v
	} else {
		if n.Rm == armisa.PC {
			return fmt.Errorf("msr source cannot be pc")
		}
		value, _ = s.GetRegister(n.Rm)
	}
	s.SetCPSR(value)
	return nil
}

func (s *System) execMultiply(n armisa.Multiply) error {
	if !n.Cond().Met(s) {
		return nil
	}
	a, _ := s.GetRegister(n.Rm)
	b, _ := s.GetRegister(n.Rs)
	if !n.Long {
		result := a * b
		if n.Accumulate {
			c, _ := s.GetRegister(n.Rn)
			result += c
		}
		s.SetRegister(n.Rd, result)
		if n.SetFlags {
			s.SetNegative(result&0x80000000 != 0)
			s.SetZero(result == 0)
		}
		return nil
	}
	var toAdd uint64
	if n.Accumulate {
		hi, _ := s.GetRegister(n.RdHi)
		lo, _ := s.GetRegister(n.RdLo)
		toAdd = uint64(hi)<<32 | uint64(lo)
	}
	var result uint64
	if n.Signed {
		signed := int64(int32(a))*int64(int32(b)) + int64(toAdd)
		result = uint64(signed)
	} else {
		result = uint64(a)*uint64(b) + toAdd
	}
	s.SetRegister(n.RdLo, uint32(result))
	s.SetRegister(n.RdHi, uint32(result>>32))
	if n.SetFlags {
		s.SetNegative(result>>63 != 0)
		s.SetZero(result == 0)
	}
	return nil
}

func (s *System) execSingleDataSwap(n armisa.SingleDataSwap) error {
	if !n.Cond().Met(s) {
		return nil
	}
	address, _ := s.GetRegister(n.Rn)
	if n.Byte {
		value, err := s.mem.ReadByte(address)
		if err != nil {
			return err
		}
		toWrite, _ := s.GetRegister(n.Rm)
		s.SetRegister(n.Rd, uint32(value))
		return s.mem.WriteByte(address, uint8(toWrite))
	}
	value, err := s.mem.ReadWord(address)
	if err != nil {
		return err
	}
	toWrite, _ := s.GetRegister(n.Rm)
	s.SetRegister(n.Rd, value)
	return s.mem.WriteWord(address, toWrite)
}

func (s *System) execBranchExchange(n armisa.BranchExchange) error {
	if !n.Cond().Met(s) {
		return nil
	}
	destination, _ := s.GetRegister(n.Rn)
	if destination&1 != 0 {
		return &armerr.Unsupported{Raw: n.Raw(), Reason: "thumb-mode branch target"}
	}
	s.SetPC(destination &^ 1)
	return nil
}

func (s *System) execHalfwordTransfer(n armisa.HalfwordTransfer) error {
	if !n.Cond().Met(s) {
		return nil
	}
	var offset uint32
	if n.IsImmediate {
		offset = uint32(n.Offset)
	} else {
		offset, _ = s.GetRegister(n.Rm)
	}
	base := s.readOperandRegister(n.Rn)
	if n.Preindex {
		if n.Up {
			base += offset
		} else {
			base -= offset
		}
	}
	if n.Load {
		var data uint32
		if n.Halfword {
			h, err := s.mem.ReadHalf(base)
			if err != nil {
				return err
			}
			if n.Signed {
				data = uint32(int32(int16(h)))
			} else {
				data = uint32(h)
			}
		} else {
			b, err := s.mem.ReadByte(base)
			if err != nil {
				return err
			}
			if n.Signed {
				data = uint32(int32(int8(b)))
			} else {
				data = uint32(b)
			}
		}
		s.SetRegister(n.Rd, data)
	} else {
		data, _ := s.GetRegister(n.Rd)
		if n.Rd == armisa.PC {
			data += 8
		}
		if err := s.mem.WriteHalf(base, uint16(data)); err != nil {
			return err
		}
	}
	if !n.Preindex {
		if n.Up {
			s.SetRegister(n.Rn, base+offset)
		} else {
			s.SetRegister(n.Rn, base-offset)
		}
	} else if n.WriteBack {
		s.SetRegister(n.Rn, base)
	}
	return nil
}

func (s *System) execSingleTransfer(n armisa.SingleTransfer) error {
	if !n.Cond().Met(s) {
		return nil
	}
	var offset uint32
	if n.ImmediateOffset {
		offset = uint32(n.Offset)
	} else {
		if n.Shift.UseRegister {
			return fmt.Errorf("register-specified shift is not allowed in a single data transfer")
		}
		if n.Rm == armisa.PC {
			return fmt.Errorf("pc cannot be used as a data transfer offset register")
		}
		offsetRegister, _ := s.GetRegister(n.Rm)
		result, _, _, err := n.Shift.Apply(offsetRegister, s.Carry(), s)
		if err != nil {
			return err
		}
		offset = result
	}
	base := s.readOperandRegister(n.Rn)
	if n.Preindex {
		if n.Up {
			base += offset
		} else {
			base -= offset
		}
	}
	if n.Load {
		var loaded uint32
		var err error
		if n.Byte {
			var b uint8
			b, err = s.mem.ReadByte(base)
			loaded = uint32(b)
		} else {
			loaded, err = s.mem.ReadWord(base)
		}
		if err != nil {
			return err
		}
		s.SetRegister(n.Rd, loaded)
	} else {
		toStore, _ := s.GetRegister(n.Rd)
		if n.Rd == armisa.PC {
			toStore += 8
		}
		var err error
		if n.Byte {
			err = s.mem.WriteByte(base, uint8(toStore))
		} else {
			err = s.mem.WriteWord(base, toStore)
		}
		if err != nil {
			return err
		}
	}
	if !n.Preindex {
		if n.Rn == armisa.PC {
			return fmt.Errorf("pc is incompatible with post-indexed addressing")
		}
		if n.Up {
			s.SetRegister(n.Rn, base+offset)
		} else {
			s.SetRegister(n.Rn, base-offset)
		}
	} else if n.WriteBack {
		if n.Rn == armisa.PC {
			return fmt.Errorf("pc is incompatible with write-back addressing")
		}
		s.SetRegister(n.Rn, base)
	}
	return nil
}

func (s *System) execBlockTransfer(n armisa.BlockTransfer) error {
	if !n.Cond().Met(s) {
		return nil
	}
	var err error
	if n.Load {
		err = s.blockTransferLoad(n)
	} else {
		err = s.blockTransferStore(n)
	}
	return err
}

func (s *System) blockTransferStore(n armisa.BlockTransfer) error {
	regs := n.RegisterList
	toStore := make([]uint32, 0, 16)
	for i := 0; i < 16 && regs != 0; i++ {
		if regs&1 == 1 {
			v, _ := s.GetRegister(armisa.Register(i))
			toStore = append(toStore, v)
		}
		regs >>= 1
	}
	if !n.Up {
		for i, j := 0, len(toStore)-1; i < j; i, j = i+1, j-1 {
			toStore[i], toStore[j] = toStore[j], toStore[i]
		}
	}
	base, _ := s.GetRegister(n.Rn)
	for _, v := range toStore {
		if n.Preindex {
			base = stepAddress(base, n.Up)
		}
		if err := s.mem.WriteWord(base, v); err != nil {
			return err
		}
		if !n.Preindex {
			base = stepAddress(base, n.Up)
		}
	}
	if n.WriteBack {
		s.SetRegister(n.Rn, base)
	}
	return nil
}

func (s *System) blockTransferLoad(n armisa.BlockTransfer) error {
	loadedBase := false
	regs := n.RegisterList
	toLoad := make([]armisa.Register, 0, 16)
	for i := 0; i < 16 && regs != 0; i++ {
		if regs&1 == 1 {
			if n.Rn == armisa.Register(i) {
				loadedBase = true
			}
			toLoad = append(toLoad, armisa.Register(i))
		}
		regs >>= 1
	}
	if !n.Up {
		for i, j := 0, len(toLoad)-1; i < j; i, j = i+1, j-1 {
			toLoad[i], toLoad[j] = toLoad[j], toLoad[i]
		}
	}
	base, _ := s.GetRegister(n.Rn)
	for _, r := range toLoad {
		if n.Preindex {
			base = stepAddress(base, n.Up)
		}
		v, err := s.mem.ReadWord(base)
		if err != nil {
			return err
		}
		s.SetRegister(r, v)
		if !n.Preindex {
			base = stepAddress(base, n.Up)
		}
	}
	if n.WriteBack && !loadedBase {
		s.SetRegister(n.Rn, base)
	}
	return nil
}

func stepAddress(base uint32, up bool) uint32 {
	if up {
		return base + 4
	}
	return base - 4
}

func (s *System) execBranch(n armisa.Branch) error {
	if !n.Cond().Met(s) {
		return nil
	}
	pc := s.PC()
	if n.Link {
		s.SetRegister(armisa.LR, pc)
	}
	s.SetPC(uint32(int32(pc) + 4 + n.Offset<<2))
	return nil
}
