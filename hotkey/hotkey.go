// Package hotkey wraps the global keyboard hook: it fires a callback when the
// configured toggle combination is pressed and streams press/release events
// for an explicit set of watched keys.
package hotkey

import (
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// KeyEvent is one press or release of a watched key.
type KeyEvent struct {
	Name string
	Down bool
}

// Listen installs the global keyboard hook. combo is a string like
// "Ctrl+Alt+G"; onCombo fires once per full-combination press. watched names
// individual keys whose press/release transitions are forwarded to onKey.
// Callbacks run on the hook goroutine and must not block.
func Listen(combo string, onCombo func(), watched []string, onKey func(KeyEvent)) {
	keys := parseHotkey(combo)
	log.Printf("Parsed hotkey configuration: %v", keys)

	type keyState struct {
		name     string
		rawcodes []uint16
		pressed  bool
	}

	var comboStates []keyState
	for _, keyName := range keys {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			log.Printf("ERROR: Cannot map key '%s' to rawcodes, hotkey may not work correctly", keyName)
			continue
		}
		comboStates = append(comboStates, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(comboStates) == 0 && onCombo != nil {
		log.Printf("ERROR: No valid keys in hotkey configuration '%s'", combo)
	}

	// Watched keys are tracked by rawcode so a key held across many events
	// produces exactly one Down and one Up.
	watchedByCode := make(map[uint16]*keyState)
	for _, name := range watched {
		normalized := strings.ToLower(strings.TrimSpace(name))
		rawcodes := keyNameToRawcodes(normalized)
		if len(rawcodes) == 0 {
			log.Printf("ERROR: Cannot map watched key '%s' to rawcodes", name)
			continue
		}
		state := &keyState{name: name, rawcodes: rawcodes}
		for _, code := range rawcodes {
			watchedByCode[code] = state
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}

		var mu sync.Mutex
		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}
			down := ev.Kind == gohook.KeyDown

			mu.Lock()
			if state, ok := watchedByCode[ev.Rawcode]; ok && state.pressed != down {
				state.pressed = down
				if onKey != nil {
					onKey(KeyEvent{Name: state.name, Down: down})
				}
			}

			matched := false
			for i := range comboStates {
				for _, rawcode := range comboStates[i].rawcodes {
					if ev.Rawcode == rawcode {
						comboStates[i].pressed = down
						matched = true
						break
					}
				}
			}

			fire := false
			if down && matched && len(comboStates) > 0 {
				fire = true
				for i := range comboStates {
					if !comboStates[i].pressed {
						fire = false
						break
					}
				}
				if fire {
					// Reset so holding the combo fires once.
					for i := range comboStates {
						comboStates[i].pressed = false
					}
				}
			}
			mu.Unlock()

			if fire {
				log.Printf("Hotkey combination detected: %s", combo)
				if onCombo != nil {
					onCombo()
				}
			}
		}
		log.Printf("Event channel closed")
	}()
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+g" to normalized key names.
func parseHotkey(combo string) []string {
	parts := strings.Split(strings.ToLower(combo), "+")
	var keys []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// keyNameToRawcodes maps a key name to the rawcodes gohook delivers for it on
// this platform, including both left and right variants for modifiers. The
// per-platform tables live in the keycodes_* files: gohook's Rawcode is the
// Windows virtual-key code, the X11 keysym or the Carbon keycode depending on
// the OS.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if codes, ok := specialRawcodes[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		c := keyName[0]
		if c >= 'a' && c <= 'z' {
			return letterRawcodes(c)
		}
		if c >= '0' && c <= '9' {
			return digitRawcodes(c)
		}
	}
	if n, ok := functionKeyNumber(keyName); ok {
		if codes := functionKeyRawcodes(n); codes != nil {
			return codes
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}

// functionKeyNumber parses "f1".."f24" into its number.
func functionKeyNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, "f") || len(name) < 2 || len(name) > 3 {
		return 0, false
	}
	n := 0
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 24 {
		return 0, false
	}
	return n, true
}
