// Package tray provides the system tray menu that steers the overlay:
// visibility, click-through, diagnostics and shutdown.
package tray

import (
	"log"

	"github.com/getlantern/systray"

	"glasspane/clipboard"
)

// Controls are the callbacks the menu drives. All of them are invoked from
// the tray's own goroutine.
type Controls struct {
	// ToggleVisible flips overlay visibility and returns the new state.
	ToggleVisible func() bool

	// SetClickThrough switches mouse passthrough on or off.
	SetClickThrough func(enabled bool)

	// Diagnostics returns a human-readable status dump for the clipboard.
	Diagnostics func() string

	// Quit shuts the application down.
	Quit func()
}

// Run blocks running the tray event loop until systray.Quit is called.
// Callers run it from a goroutine because the main thread is pinned to the
// render loop; systray prefers the main thread on macOS, so the tray icon
// may not appear there. The overlay itself is unaffected.
func Run(clickThrough bool, c Controls) {
	systray.Run(func() { onReady(clickThrough, c) }, func() {
		if c.Quit != nil {
			c.Quit()
		}
	})
}

// Quit asks the tray loop to exit, which in turn fires Controls.Quit.
func Quit() {
	systray.Quit()
}

func onReady(clickThrough bool, c Controls) {
	systray.SetIcon(getIcon())
	systray.SetTitle("Glasspane")
	systray.SetTooltip("Glasspane overlay")

	mToggle := systray.AddMenuItem("Hide overlay", "Show or hide the overlay")
	mClick := systray.AddMenuItemCheckbox("Click-through", "Pass mouse input to windows underneath", clickThrough)
	mDiag := systray.AddMenuItem("Copy diagnostics", "Copy overlay status to the clipboard")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				if c.ToggleVisible == nil {
					continue
				}
				if c.ToggleVisible() {
					mToggle.SetTitle("Hide overlay")
				} else {
					mToggle.SetTitle("Show overlay")
				}
			case <-mClick.ClickedCh:
				if c.SetClickThrough == nil {
					continue
				}
				if mClick.Checked() {
					mClick.Uncheck()
					c.SetClickThrough(false)
				} else {
					mClick.Check()
					c.SetClickThrough(true)
				}
			case <-mDiag.ClickedCh:
				if c.Diagnostics == nil {
					continue
				}
				if err := clipboard.Write(c.Diagnostics()); err != nil {
					log.Printf("tray: copy diagnostics: %v", err)
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func getIcon() []byte {
	// TODO: ship a real tray icon; nil falls back to the platform default.
	return nil
}
