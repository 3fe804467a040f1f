package armisa

// Disassemble decodes raw and renders it as ARM assembly syntax, or
// returns the same error Decode would.
func Disassemble(raw uint32) (string, error) {
	inst, err := Decode(raw)
	if err != nil {
		return "", err
	}
	return inst.String(), nil
}
