//go:build linux

package hotkey

// On Linux gohook's Rawcode carries the X11 keysym of the pressed key, not a
// scan code, so modifiers arrive as XK_Control_L (65507) and friends.
var specialRawcodes = map[string][]uint16{
	"ctrl":  {65507, 65508}, // XK_Control_L, XK_Control_R
	"alt":   {65513, 65514}, // XK_Alt_L, XK_Alt_R
	"shift": {65505, 65506}, // XK_Shift_L, XK_Shift_R
	"cmd":   {65515, 65516}, // XK_Super_L, XK_Super_R

	"space":     {32},
	"enter":     {65293}, // XK_Return
	"return":    {65293},
	"esc":       {65307}, // XK_Escape
	"escape":    {65307},
	"tab":       {65289},
	"backspace": {65288},
	"delete":    {65535},
	"del":       {65535},
	"insert":    {65379},
	"ins":       {65379},
	"home":      {65360},
	"end":       {65367},
	"pageup":    {65365},
	"pgup":      {65365},
	"pagedown":  {65366},
	"pgdn":      {65366},
	"left":      {65361},
	"up":        {65362},
	"right":     {65363},
	"down":      {65364},
}

// letterRawcodes returns both case variants: the keysym reflects the
// modifier state, so a letter pressed under Shift arrives uppercase.
func letterRawcodes(c byte) []uint16 {
	return []uint16{uint16(c), uint16(c - 'a' + 'A')}
}

func digitRawcodes(c byte) []uint16 {
	return []uint16{uint16(c)}
}

// functionKeyRawcodes maps F1-F24 to XK_F1 (65470) onward.
func functionKeyRawcodes(n int) []uint16 {
	return []uint16{uint16(65470 + n - 1)}
}
