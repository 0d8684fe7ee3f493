package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// FPSVSync requests pacing on the display's vertical sync instead of a
	// fixed interval.
	FPSVSync = 0

	BackgroundTransparent = "transparent"
	BackgroundOpaqueDebug = "opaque-debug"

	defaultWidth  = 420
	defaultHeight = 690
)

type LoadOptions struct {
	GeometryOverride string // "WxH+X+Y", e.g. "800x600+40+40"
	MonitorOverride  string
}

// Config is the overlay configuration, consumed once when the overlay opens.
type Config struct {
	X, Y          int
	Width, Height int    // logical pixels
	Monitor       string // monitor ID or "primary"
	ClickThrough  bool
	FPS           int // frames per second; FPSVSync means vsync
	Background    string
	Title         string

	RequireCompositor bool
	EnableFileLogging bool
	Hotkey            string
	Keys              []string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Configuration sources in priority order:
	// 1) .env in the executable's directory
	// 2) GLASSPANE_ENV as a path to an env file
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		X:                 getEnvInt("GLASSPANE_X", 40),
		Y:                 getEnvInt("GLASSPANE_Y", 40),
		Width:             getEnvInt("GLASSPANE_WIDTH", defaultWidth),
		Height:            getEnvInt("GLASSPANE_HEIGHT", defaultHeight),
		Monitor:           getEnvWithDefault("GLASSPANE_MONITOR", "primary"),
		ClickThrough:      getEnvBool("GLASSPANE_CLICK_THROUGH", true),
		FPS:               resolveFPS(os.Getenv("GLASSPANE_FPS")),
		Background:        resolveBackground(os.Getenv("GLASSPANE_BACKGROUND")),
		Title:             getEnvWithDefault("GLASSPANE_TITLE", "glasspane"),
		RequireCompositor: getEnvBool("GLASSPANE_REQUIRE_COMPOSITOR", true),
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING", false),
		Hotkey:            getEnvWithDefault("HOTKEY", "Ctrl+Alt+G"),
		Keys:              splitList(getEnvWithDefault("GLASSPANE_KEYS", "D,F,J,K")),
	}

	if opts.GeometryOverride != "" {
		if err := applyGeometry(cfg, opts.GeometryOverride); err != nil {
			return nil, err
		}
	}
	if opts.MonitorOverride != "" {
		cfg.Monitor = opts.MonitorOverride
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the construction invariants: a drawable size and a
// positive frame rate when one is fixed.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d: width and height must be positive", c.Width, c.Height)
	}
	if c.FPS < 0 {
		return fmt.Errorf("invalid frame rate %d", c.FPS)
	}
	if c.Background != BackgroundTransparent && c.Background != BackgroundOpaqueDebug {
		return fmt.Errorf("invalid background mode %q", c.Background)
	}
	return nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}
	if alt := os.Getenv("GLASSPANE_ENV"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return ""
}

// resolveFPS parses "vsync" or a positive integer; anything else falls back
// to vsync rather than failing startup over a typo.
func resolveFPS(value string) int {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == "vsync" {
		return FPSVSync
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return FPSVSync
}

func resolveBackground(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", BackgroundTransparent:
		return BackgroundTransparent
	case BackgroundOpaqueDebug, "opaque", "debug":
		return BackgroundOpaqueDebug
	default:
		return BackgroundTransparent
	}
}

// applyGeometry parses a "WxH" or "WxH+X+Y" override.
func applyGeometry(cfg *Config, geom string) error {
	size := geom
	if i := strings.IndexAny(geom, "+-"); i > 0 {
		size = geom[:i]
		var x, y int
		if _, err := fmt.Sscanf(geom[i:], "%d%d", &x, &y); err != nil {
			return fmt.Errorf("invalid geometry %q: %v", geom, err)
		}
		cfg.X, cfg.Y = x, y
	}
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil {
		return fmt.Errorf("invalid geometry %q: %v", geom, err)
	}
	cfg.Width, cfg.Height = w, h
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
