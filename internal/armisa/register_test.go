package armisa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterStringNamesSpecialRegisters(t *testing.T) {
	assert.Equal(t, "sp", SP.String())
	assert.Equal(t, "lr", LR.String())
	assert.Equal(t, "pc", PC.String())
	assert.Equal(t, "r0", Register(0).String())
	assert.Equal(t, "r7", Register(7).String())
}

func TestNewRegisterMasksToFourBits(t *testing.T) {
	assert.Equal(t, Register(3), NewRegister(0x13))
	assert.Equal(t, PC, NewRegister(0xff))
}
