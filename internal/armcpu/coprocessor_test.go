package armcpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaGuich/armcore/internal/armisa"
)

// counterCoprocessor increments its count field every time it's invoked,
// regardless of the instruction's exact bit pattern.
type counterCoprocessor struct {
	count int
}

func (c *counterCoprocessor) Execute(sys *System, raw uint32) error {
	c.count++
	return nil
}

func TestAttachedCoprocessorIsInvoked(t *testing.T) {
	s := newBareSystem(t)
	var cop counterCoprocessor
	s.AttachCoprocessor(3, &cop)

	// Coprocessor number 3 lives in bits [11:8]; cond is EQ (0), which
	// newBareSystem's SetZero(true) satisfies.
	err := s.dispatch(0, mustDecode(t, 0x0e000300))
	require.NoError(t, err)
	assert.Equal(t, 1, cop.count)
}

func TestUnattachedCoprocessorNumberIsUnsupported(t *testing.T) {
	s := newBareSystem(t)
	err := s.dispatch(0, mustDecode(t, 0x0e000300))
	assert.Error(t, err)
}

func mustDecode(t *testing.T, raw uint32) armisa.Instruction {
	t.Helper()
	inst, err := armisa.Decode(raw)
	require.NoError(t, err)
	_, ok := inst.(armisa.Coprocessor)
	require.True(t, ok, "expected %08x to decode as a coprocessor instruction", raw)
	return inst
}
