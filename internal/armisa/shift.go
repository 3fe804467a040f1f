package armisa

import "fmt"

// ShiftKind names one of the five distinct shifter operations the barrel
// shifter can perform. RRX is its own kind rather than "ROR by 0" so that
// the amount-0 encoding overloads are resolved once, at decode time,
// instead of being re-derived on every Apply call.
type ShiftKind uint8

const (
	LSL ShiftKind = iota
	LSR
	ASR
	ROR
	RRX
)

func (k ShiftKind) String() string {
	switch k {
	case LSL:
		return "lsl"
	case LSR:
		return "lsr"
	case ASR:
		return "asr"
	case ROR:
		return "ror"
	case RRX:
		return "rrx"
	}
	return "?"
}

// RegisterReader is the narrow view of processor state a register-specified
// shift amount needs.
type RegisterReader interface {
	GetRegister(r Register) (uint32, error)
}

// ShiftSpec is a fully-resolved description of a barrel-shifter operation:
// its kind and either a register naming where the runtime amount comes
// from, or an immediate amount already normalized for the Kind (so, e.g.,
// an encoded LSR-immediate of 0 becomes Kind=LSR with Amount=32 rather than
// surviving as an ambiguous 0).
type ShiftSpec struct {
	Kind        ShiftKind
	Register    Register
	Amount      uint8
	UseRegister bool
}

// NewShiftSpec decodes the 8-bit shift field found in an ARM data
// processing instruction's operand2, normalizing the architectural
// amount-0 overloads (LSR/ASR 0 => 32, ROR 0 => RRX) at decode time.
// Register-specified shifts (bit 0 set) cannot be normalized yet since the
// amount isn't known until Apply reads the register; those retain their
// raw Kind and are normalized by Apply itself.
func NewShiftSpec(raw uint8) ShiftSpec {
	useRegister := raw&1 == 1
	kind := ShiftKind((raw >> 1) & 3)
	if useRegister {
		return ShiftSpec{Kind: kind, Register: NewRegister(raw >> 4), UseRegister: true}
	}
	amount := (raw >> 3) & 0x1f
	switch kind {
	case LSR, ASR:
		if amount == 0 {
			amount = 32
		}
	case ROR:
		if amount == 0 {
			kind = RRX
		}
	}
	return ShiftSpec{Kind: kind, Amount: amount}
}

// String renders the shift the way ARM assembly syntax does: omitted
// entirely for a no-op LSL #0, "<mnemonic> <reg>" for register-specified,
// "<mnemonic> #<n>" otherwise.
func (s ShiftSpec) String() string {
	if s.UseRegister {
		return fmt.Sprintf("%s %s", s.Kind, s.Register)
	}
	if s.Kind == LSL && s.Amount == 0 {
		return ""
	}
	if s.Kind == RRX {
		return "rrx"
	}
	return fmt.Sprintf("%s #%d", s.Kind, s.Amount)
}

// Apply runs the shifter against value, returning the shifted result, the
// carry-out it produces, and whether that carry-out is architecturally
// meaningful. carryAffected is false only for a literal LSL #0 (immediate,
// amount 0) and for a register-specified shift whose runtime amount is 0 —
// both leave the C flag untouched rather than producing a carry-out.
// carryIn is the current C flag, needed by RRX and by that pass-through
// case.
func (s ShiftSpec) Apply(value uint32, carryIn bool, regs RegisterReader) (result uint32, carryOut bool, carryAffected bool, err error) {
	spec := s
	if s.UseRegister {
		if s.Register == PC {
			return value, carryIn, false, fmt.Errorf("register-specified shift cannot use pc")
		}
		raw, e := regs.GetRegister(s.Register)
		if e != nil {
			return value, carryIn, false, e
		}
		amount := uint8(raw & 0xff)
		if amount == 0 {
			return value, carryIn, false, nil
		}
		if s.Kind == ROR && amount%32 == 0 {
			// ROR by a non-zero multiple of 32: value is unchanged, but
			// C still takes the operand's top bit.
			return value, value&0x80000000 != 0, true, nil
		}
		spec = normalizeRegisterAmount(s.Kind, amount)
	}
	switch spec.Kind {
	case LSL:
		if spec.Amount == 0 {
			return value, carryIn, false, nil
		}
		result, carryOut, err = applyLSL(value, spec.Amount)
	case LSR:
		result, carryOut, err = applyLSR(value, spec.Amount)
	case ASR:
		result, carryOut, err = applyASR(value, spec.Amount)
	case ROR:
		result, carryOut, err = applyROR(value, spec.Amount)
	case RRX:
		result, carryOut, err = applyRRX(value, carryIn)
	default:
		return value, carryIn, false, fmt.Errorf("invalid shift kind: %d", spec.Kind)
	}
	return result, carryOut, true, err
}

// normalizeRegisterAmount resolves a register-supplied runtime amount into
// the same fixed-point form immediate shifts use. The caller has already
// handled amount == 0 and ROR by a multiple of 32, so a ROR amount
// reaching here is always in [1,31] once reduced mod 32.
func normalizeRegisterAmount(kind ShiftKind, amount uint8) ShiftSpec {
	if kind == ROR {
		amount %= 32
	}
	return ShiftSpec{Kind: kind, Amount: amount}
}

func applyLSL(value uint32, amount uint8) (uint32, bool, error) {
	if amount == 0 {
		return value, false, nil
	}
	if amount > 32 {
		return 0, false, nil
	}
	if amount == 32 {
		return 0, value&1 != 0, nil
	}
	carry := (value<<(amount-1))&0x80000000 != 0
	return value << amount, carry, nil
}

func applyLSR(value uint32, amount uint8) (uint32, bool, error) {
	if amount >= 32 {
		if amount == 32 {
			return 0, value&0x80000000 != 0, nil
		}
		return 0, false, nil
	}
	carry := (value>>(amount-1))&1 != 0
	return value >> amount, carry, nil
}

func applyASR(value uint32, amount uint8) (uint32, bool, error) {
	if amount >= 32 {
		if value&0x80000000 != 0 {
			return 0xffffffff, true, nil
		}
		return 0, false, nil
	}
	carry := (value>>(amount-1))&1 != 0
	return uint32(int32(value) >> amount), carry, nil
}

func applyROR(value uint32, amount uint8) (uint32, bool, error) {
	amount %= 32
	if amount == 0 {
		return value, value&0x80000000 != 0, nil
	}
	result := (value >> amount) | (value << (32 - amount))
	return result, result&0x80000000 != 0, nil
}

func applyRRX(value uint32, carryIn bool) (uint32, bool, error) {
	result := value >> 1
	if carryIn {
		result |= 0x80000000
	}
	return result, value&1 != 0, nil
}
