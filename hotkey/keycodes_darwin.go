//go:build darwin

package hotkey

// On macOS gohook's Rawcode carries the Carbon virtual keycode (kVK_*),
// which is layout-positional: 'a' is 0, Control is 59.
var specialRawcodes = map[string][]uint16{
	"ctrl":  {59, 62}, // kVK_Control, kVK_RightControl
	"alt":   {58, 61}, // kVK_Option, kVK_RightOption
	"shift": {56, 60}, // kVK_Shift, kVK_RightShift
	"cmd":   {55, 54}, // kVK_Command, kVK_RightCommand

	"space":     {49},
	"enter":     {36}, // kVK_Return
	"return":    {36},
	"esc":       {53},
	"escape":    {53},
	"tab":       {48},
	"backspace": {51},  // kVK_Delete
	"delete":    {117}, // kVK_ForwardDelete
	"del":       {117},
	"insert":    {114}, // kVK_Help, the closest thing Mac keyboards have
	"ins":       {114},
	"home":      {115},
	"end":       {119},
	"pageup":    {116},
	"pgup":      {116},
	"pagedown":  {121},
	"pgdn":      {121},
	"left":      {123},
	"up":        {126},
	"right":     {124},
	"down":      {125},
}

var darwinLetters = [26]uint16{
	0,  // a
	11, // b
	8,  // c
	2,  // d
	14, // e
	3,  // f
	5,  // g
	4,  // h
	34, // i
	38, // j
	40, // k
	37, // l
	46, // m
	45, // n
	31, // o
	35, // p
	12, // q
	15, // r
	1,  // s
	17, // t
	32, // u
	9,  // v
	13, // w
	7,  // x
	16, // y
	6,  // z
}

var darwinDigits = [10]uint16{29, 18, 19, 20, 21, 23, 22, 26, 28, 25} // 0-9

var darwinFunctionKeys = [20]uint16{
	122, 120, 99, 118, 96, 97, 98, 100, 101, 109, // F1-F10
	103, 111, 105, 107, 113, 106, 64, 79, 80, 90, // F11-F20
}

func letterRawcodes(c byte) []uint16 {
	return []uint16{darwinLetters[c-'a']}
}

func digitRawcodes(c byte) []uint16 {
	return []uint16{darwinDigits[c-'0']}
}

func functionKeyRawcodes(n int) []uint16 {
	if n > len(darwinFunctionKeys) {
		return nil
	}
	return []uint16{darwinFunctionKeys[n-1]}
}
