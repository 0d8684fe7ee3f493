//go:build darwin

package hotkey

import (
	"reflect"
	"testing"
)

func TestKeyNameToRawcodesCarbon(t *testing.T) {
	cases := []struct {
		name string
		want []uint16
	}{
		{"a", []uint16{0}},
		{"s", []uint16{1}},
		{"d", []uint16{2}},
		{"z", []uint16{6}},
		{"0", []uint16{29}},
		{"9", []uint16{25}},
		{"f1", []uint16{122}},
		{"F12", []uint16{111}},
		{"f21", nil}, // Mac keyboards stop at F20
		{"ctrl", []uint16{59, 62}},
		{"cmd", []uint16{55, 54}},
		{"escape", []uint16{53}},
		{"space", []uint16{49}},
	}
	for _, tc := range cases {
		if got := keyNameToRawcodes(tc.name); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("keyNameToRawcodes(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
