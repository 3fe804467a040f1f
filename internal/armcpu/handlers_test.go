package armcpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaGuich/armcore/internal/armerr"
	"github.com/DaGuich/armcore/internal/armisa"
	"github.com/DaGuich/armcore/internal/armmem"
)

// newBareSystem returns a System with cond-EQ satisfied, for exercising a
// single handler in isolation without going through Decode.
func newBareSystem(t *testing.T) *System {
	t.Helper()
	mem := armmem.New(armmem.DefaultCapacity)
	s := New(mem)
	s.SetZero(true) // zero-value Condition is eq; satisfy it unconditionally
	return s
}

func TestSingleDataSwapWord(t *testing.T) {
	s := newBareSystem(t)
	require.NoError(t, s.Memory().WriteWord(64, 0xdeadbeef))
	s.SetRegister(2, 64)  // Rn: address
	s.SetRegister(1, 123) // Rm: value to store

	n := armisa.SingleDataSwap{Rd: 0, Rm: 1, Rn: 2}
	require.NoError(t, s.execSingleDataSwap(n))

	assert.Equal(t, uint32(0xdeadbeef), s.regs[0])
	v, err := s.Memory().ReadWord(64)
	require.NoError(t, err)
	assert.Equal(t, uint32(123), v)
}

func TestSingleDataSwapByte(t *testing.T) {
	s := newBareSystem(t)
	require.NoError(t, s.Memory().WriteByte(64, 0xab))
	s.SetRegister(2, 64)
	s.SetRegister(1, 0x39)

	n := armisa.SingleDataSwap{Rd: 0, Rm: 1, Rn: 2, Byte: true}
	require.NoError(t, s.execSingleDataSwap(n))

	assert.Equal(t, uint32(0xab), s.regs[0])
	b, err := s.Memory().ReadByte(64)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x39), b)
}

func TestBranchExchangeRejectsOddTarget(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(1, 0x101)
	err := s.execBranchExchange(armisa.BranchExchange{Rn: 1})
	require.Error(t, err)
	var unsupported *armerr.Unsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestBranchExchangeBranchesToEvenTarget(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(1, 0x100)
	require.NoError(t, s.execBranchExchange(armisa.BranchExchange{Rn: 1}))
	assert.Equal(t, uint32(0x100), s.PC())
}

func TestMultiplyAccumulate(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(1, 6)  // Rm
	s.SetRegister(2, 7)  // Rs
	s.SetRegister(3, 10) // Rn: accumulate operand
	n := armisa.Multiply{Rd: 0, Rm: 1, Rs: 2, Rn: 3, Accumulate: true}
	require.NoError(t, s.execMultiply(n))
	assert.Equal(t, uint32(52), s.regs[0]) // 6*7 + 10
}

func TestLongMultiplyUnsigned(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(2, 0xffffffff) // Rm
	s.SetRegister(3, 2)          // Rs
	n := armisa.Multiply{Long: true, Rm: 2, Rs: 3, RdLo: 0, RdHi: 1}
	require.NoError(t, s.execMultiply(n))
	want := uint64(0xffffffff) * 2
	assert.Equal(t, uint32(want), s.regs[0])
	assert.Equal(t, uint32(want>>32), s.regs[1])
}

func TestLongMultiplySignedNegative(t *testing.T) {
	s := newBareSystem(t)
	rm := int32(-2)
	rs := int32(3)
	s.SetRegister(2, uint32(rm))
	s.SetRegister(3, uint32(rs))
	n := armisa.Multiply{Long: true, Signed: true, Rm: 2, Rs: 3, RdLo: 0, RdHi: 1}
	require.NoError(t, s.execMultiply(n))
	got := int64(uint64(s.regs[1])<<32 | uint64(s.regs[0]))
	assert.Equal(t, int64(-6), got)
}

func TestPSRTransferMRS(t *testing.T) {
	s := newBareSystem(t)
	s.SetNegative(true)
	s.SetCarry(true)
	n := armisa.PSRTransfer{Rd: 0, UseCPSR: true}
	require.NoError(t, s.execPSRTransfer(n))
	assert.Equal(t, s.CPSR(), s.regs[0])
	assert.Equal(t, uint32(0xe0000000), s.regs[0]) // N, Z (from newBareSystem) and C
}

func TestPSRTransferMSRFlagsImmediate(t *testing.T) {
	s := newBareSystem(t)
	n := armisa.PSRTransfer{
		WritePSR: true, UseCPSR: true, FlagsOnly: true,
		IsImmediate: true, Immediate: 0x10, Rotate: 4,
	}
	require.NoError(t, s.execPSRTransfer(n))
	assert.True(t, s.Overflow())
	assert.False(t, s.Negative())
	assert.False(t, s.Zero())
	assert.False(t, s.Carry())
}

func TestPSRTransferMSRFlagsRegister(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(5, 0xc0000000) // N and Z
	n := armisa.PSRTransfer{WritePSR: true, UseCPSR: true, FlagsOnly: true, Rm: 5}
	require.NoError(t, s.execPSRTransfer(n))
	assert.True(t, s.Negative())
	assert.True(t, s.Zero())
	assert.False(t, s.Carry())
}

func TestPSRTransferRejectsSPSR(t *testing.T) {
	s := newBareSystem(t)
	n := armisa.PSRTransfer{WritePSR: true, UseCPSR: false, FlagsOnly: true, Rm: 1}
	err := s.execPSRTransfer(n)
	var unsupported *armerr.Unsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestPSRTransferRejectsNonFlagsOnlyMSR(t *testing.T) {
	s := newBareSystem(t)
	n := armisa.PSRTransfer{WritePSR: true, UseCPSR: true, FlagsOnly: false, Rm: 1}
	err := s.execPSRTransfer(n)
	var unsupported *armerr.Unsupported
	assert.ErrorAs(t, err, &unsupported)
}

func blockList(regs ...armisa.Register) uint16 {
	var list uint16
	for _, r := range regs {
		list |= 1 << uint(r)
	}
	return list
}

func TestBlockTransferStoreIncrementAfter(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(0, 100)
	s.SetRegister(1, 11)
	s.SetRegister(2, 22)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(1, 2), Up: true, Preindex: false}
	require.NoError(t, s.execBlockTransfer(n))
	w0, _ := s.Memory().ReadWord(100)
	w1, _ := s.Memory().ReadWord(104)
	assert.Equal(t, uint32(11), w0)
	assert.Equal(t, uint32(22), w1)
	assert.Equal(t, uint32(100), s.regs[0]) // no write-back requested
}

func TestBlockTransferStoreIncrementBeforeWithWriteBack(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(0, 100)
	s.SetRegister(1, 11)
	s.SetRegister(2, 22)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(1, 2), Up: true, Preindex: true, WriteBack: true}
	require.NoError(t, s.execBlockTransfer(n))
	w0, _ := s.Memory().ReadWord(104)
	w1, _ := s.Memory().ReadWord(108)
	assert.Equal(t, uint32(11), w0)
	assert.Equal(t, uint32(22), w1)
	assert.Equal(t, uint32(108), s.regs[0])
}

func TestBlockTransferStoreDecrementAfter(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(0, 108)
	s.SetRegister(1, 11)
	s.SetRegister(2, 22)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(1, 2), Up: false, Preindex: false, WriteBack: true}
	require.NoError(t, s.execBlockTransfer(n))
	w108, _ := s.Memory().ReadWord(108)
	w104, _ := s.Memory().ReadWord(104)
	assert.Equal(t, uint32(22), w108)
	assert.Equal(t, uint32(11), w104)
	assert.Equal(t, uint32(100), s.regs[0])
}

func TestBlockTransferStoreDecrementBefore(t *testing.T) {
	s := newBareSystem(t)
	s.SetRegister(0, 108)
	s.SetRegister(1, 11)
	s.SetRegister(2, 22)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(1, 2), Up: false, Preindex: true, WriteBack: true}
	require.NoError(t, s.execBlockTransfer(n))
	w104, _ := s.Memory().ReadWord(104)
	w100, _ := s.Memory().ReadWord(100)
	assert.Equal(t, uint32(22), w104)
	assert.Equal(t, uint32(11), w100)
	assert.Equal(t, uint32(100), s.regs[0])
}

func TestBlockTransferLoadWriteBack(t *testing.T) {
	s := newBareSystem(t)
	require.NoError(t, s.Memory().WriteWord(100, 11))
	require.NoError(t, s.Memory().WriteWord(104, 22))
	s.SetRegister(0, 100)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(1, 2), Up: true, Preindex: false, Load: true, WriteBack: true}
	require.NoError(t, s.execBlockTransfer(n))
	assert.Equal(t, uint32(11), s.regs[1])
	assert.Equal(t, uint32(22), s.regs[2])
	assert.Equal(t, uint32(108), s.regs[0])
}

func TestBlockTransferLoadSkipsWriteBackWhenBaseIsLoaded(t *testing.T) {
	s := newBareSystem(t)
	require.NoError(t, s.Memory().WriteWord(100, 200))
	require.NoError(t, s.Memory().WriteWord(104, 22))
	s.SetRegister(0, 100)
	n := armisa.BlockTransfer{Rn: 0, RegisterList: blockList(0, 1), Up: true, Preindex: false, Load: true, WriteBack: true}
	require.NoError(t, s.execBlockTransfer(n))
	// Rn (r0) is itself in the list; write-back must not clobber the loaded value.
	assert.Equal(t, uint32(200), s.regs[0])
	assert.Equal(t, uint32(22), s.regs[1])
}
