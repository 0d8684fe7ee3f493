package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"

	"glasspane/clipboard"
	"glasspane/config"
	"glasspane/content"
	"glasspane/hotkey"
	"glasspane/logutil"
	"glasspane/overlay"
	"glasspane/singleinstance"
	"glasspane/tray"
)

// normalizeFlagDashes maps GNU-style --toggle/--show/--hide/--geometry to
// Go's single-dash flags.
func normalizeFlagDashes() {
	for i := 1; i < len(os.Args); i++ {
		if strings.HasPrefix(os.Args[i], "--") && len(os.Args[i]) > 2 {
			os.Args[i] = os.Args[i][1:]
		}
	}
}

// enableDPIAwareness attempts to set per-monitor DPI awareness on Windows so
// window metrics arrive unscaled.
func enableDPIAwareness() {
	if runtime.GOOS != "windows" {
		return
	}
	// Prefer per-monitor DPI awareness via Shcore.SetProcessDpiAwareness (Win 8.1+)
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const PROCESS_PER_MONITOR_DPI_AWARE = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		_, _, _ = setProcessDpiAwareness.Call(uintptr(PROCESS_PER_MONITOR_DPI_AWARE))
		return
	}
	// Fallback: user32.SetProcessDPIAware (Vista+)
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		_, _, _ = setProcessDPIAware.Call()
	}
}

// app binds the overlay controller to the tray, hotkey and delegation server.
type app struct {
	ov           *overlay.Overlay
	visible      atomic.Bool
	clickThrough atomic.Bool
	format       string
}

func (a *app) toggleVisible() bool {
	if a.visible.Load() {
		a.hide()
	} else {
		a.show()
	}
	return a.visible.Load()
}

func (a *app) show() {
	if err := a.ov.Show(); err != nil {
		log.Printf("show: %v", err)
		return
	}
	a.visible.Store(true)
}

func (a *app) hide() {
	if err := a.ov.Hide(); err != nil {
		log.Printf("hide: %v", err)
		return
	}
	a.visible.Store(false)
}

func (a *app) setClickThrough(enabled bool) {
	if err := a.ov.SetClickThrough(enabled); err != nil {
		log.Printf("click-through: %v", err)
		return
	}
	a.clickThrough.Store(enabled)
}

func (a *app) diagnostics() string {
	return fmt.Sprintf("glasspane: visible=%v click-through=%v frames=%d format=%s",
		a.visible.Load(), a.clickThrough.Load(), a.ov.Frames(), a.format)
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// The render loop and every windowing call run on the main thread.
	runtime.LockOSThread()

	toggleFlag := flag.Bool("toggle", false, "Toggle visibility of a running overlay and exit")
	showFlag := flag.Bool("show", false, "Show a running overlay and exit")
	hideFlag := flag.Bool("hide", false, "Hide a running overlay and exit")
	geometry := flag.String("geometry", "", "Window geometry override, WxH or WxH+X+Y")
	monitor := flag.String("monitor", "", "Monitor ID to open on (default: primary)")
	normalizeFlagDashes()
	flag.Parse()

	// Load .env early so GLASSPANE_PORT_* are applied before any delegation scan
	_, _ = config.Load()

	if cmd := delegationCommand(*toggleFlag, *showFlag, *hideFlag); cmd != "" {
		delegate(cmd)
		return
	}

	// ---------- single-instance pre-flight ----------
	if port, ok := singleinstance.DetectResidentPort(context.Background()); ok {
		fmt.Printf("glasspane is already running (port %d); use -toggle to control it\n", port)
		os.Exit(1)
	}
	// ------------------------------------------------

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		GeometryOverride: *geometry,
		MonitorOverride:  *monitor,
	})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logutil.Setup(cfg.EnableFileLogging)

	if err := clipboard.Init(); err != nil {
		// Diagnostics copy degrades; everything else still works.
		log.Printf("clipboard unavailable: %v", err)
	}

	log.Printf("Glasspane initialized")
	log.Printf("Geometry: %dx%d+%d+%d on %q", cfg.Width, cfg.Height, cfg.X, cfg.Y, cfg.Monitor)
	log.Printf("Hotkey: %s, keys: %v", cfg.Hotkey, cfg.Keys)

	statusBox := content.NewMailbox[string]()
	ov, err := overlay.Open(cfg, overlay.WithSink(func(o overlay.Observation) {
		statusBox.Put(fmt.Sprintf("%s: %v", o.Kind, o.Err))
	}))
	if err != nil {
		log.Fatalf("Failed to open overlay: %v", err)
	}

	a := &app{ov: ov}
	a.clickThrough.Store(cfg.ClickThrough)
	pf := ov.PixelFormat()
	a.format = fmt.Sprintf("%d-bit alpha=%v order=%v premult=%v", pf.Bits, pf.Alpha, pf.Order, pf.Premultiplied)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Delegation server: a second invocation reaches a resident here.
	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to claim single-instance port: %v", err)
	}
	defer srv.Close()
	go serveDelegations(ctx, srv, a)

	scene := newKeyScene(cfg.Keys, statusBox)
	hotkey.Listen(cfg.Hotkey, func() { a.toggleVisible() }, cfg.Keys, scene.HandleKey)

	go tray.Run(cfg.ClickThrough, tray.Controls{
		ToggleVisible:   a.toggleVisible,
		SetClickThrough: a.setClickThrough,
		Diagnostics:     a.diagnostics,
		Quit:            cancel,
	})
	defer tray.Quit()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	a.show()
	if err := ov.Run(ctx, scene.Draw); err != nil && err != context.Canceled {
		log.Printf("overlay stopped: %v", err)
	}
}

func delegationCommand(toggle, show, hide bool) string {
	switch {
	case toggle:
		return singleinstance.CmdToggle
	case show:
		return singleinstance.CmdShow
	case hide:
		return singleinstance.CmdHide
	default:
		return ""
	}
}

// delegate sends cmd to a resident overlay and reports the outcome on stdout.
func delegate(cmd string) {
	client := singleinstance.NewClient()
	delegated, err := client.TryCommand(context.Background(), cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delegation failed: %v\n", err)
		os.Exit(1)
	}
	if !delegated {
		fmt.Fprintln(os.Stderr, "no running glasspane instance found")
		os.Exit(1)
	}
	log.Printf("Delegated %s to resident", cmd)
}

func serveDelegations(ctx context.Context, srv singleinstance.Server, a *app) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		switch conn.Request().Command {
		case singleinstance.CmdToggle:
			a.toggleVisible()
			_ = conn.RespondSuccess()
		case singleinstance.CmdShow:
			a.show()
			_ = conn.RespondSuccess()
		case singleinstance.CmdHide:
			a.hide()
			_ = conn.RespondSuccess()
		default:
			_ = conn.RespondError("unknown command: " + conn.Request().Command)
		}
		_ = conn.Close()
	}
}
