//go:build !linux && !windows && !darwin

package hotkey

var specialRawcodes = map[string][]uint16{}

func letterRawcodes(byte) []uint16     { return nil }
func digitRawcodes(byte) []uint16      { return nil }
func functionKeyRawcodes(int) []uint16 { return nil }
