package capability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// StaticEnvironment reports fixed values. GraphicsErr makes the graphics
// check fail; GraphicsPanic makes it panic.
type StaticEnvironment struct {
	Renderer      string
	GraphicsErr   error
	GraphicsPanic bool
	ReducedMotion bool
	MemoryGB      float64 // 0 means not reported
	Cores         int
	Agent         string
	Touch         int
	PixelRatio    float64
}

// GraphicsContext implements Environment
func (e StaticEnvironment) GraphicsContext(context.Context) (string, error) {
	if e.GraphicsPanic {
		panic("graphics context creation crashed")
	}
	if e.GraphicsErr != nil {
		return "", e.GraphicsErr
	}
	return e.Renderer, nil
}

func (e StaticEnvironment) PrefersReducedMotion() bool { return e.ReducedMotion }
func (e StaticEnvironment) HardwareConcurrency() int   { return e.Cores }
func (e StaticEnvironment) UserAgent() string          { return e.Agent }
func (e StaticEnvironment) TouchPoints() int           { return e.Touch }
func (e StaticEnvironment) DevicePixelRatio() float64  { return e.PixelRatio }

// DeviceMemoryGB implements Environment
func (e StaticEnvironment) DeviceMemoryGB() (float64, bool) {
	return e.MemoryGB, e.MemoryGB > 0
}

// Client hint and custom headers read by RequestEnvironment
const (
	HeaderDeviceMemory   = "Sec-CH-Device-Memory"
	HeaderDPR            = "Sec-CH-DPR"
	HeaderMobile         = "Sec-CH-UA-Mobile"
	HeaderReducedMotion  = "Sec-CH-Prefers-Reduced-Motion"
	HeaderGraphics       = "X-Netgraph-Graphics"
	HeaderCores          = "X-Netgraph-Cores"
	HeaderTouch          = "X-Netgraph-Touch"
	legacyDeviceMemory   = "Device-Memory"
	legacyDPR            = "DPR"
	graphicsUnsupportedV = "none"
)

// AcceptCH lists the client hints a server should request
var AcceptCH = strings.Join([]string{HeaderDeviceMemory, HeaderDPR, HeaderMobile, HeaderReducedMotion}, ", ")

// RequestEnvironment probes a browser through the headers of its request.
// Browsers that send no graphics header are assumed to support graphics;
// the client reports failures later as surface loss or render errors.
type RequestEnvironment struct {
	Header http.Header
}

// NewRequestEnvironment wraps the request's headers
func NewRequestEnvironment(r *http.Request) RequestEnvironment {
	return RequestEnvironment{Header: r.Header}
}

// GraphicsContext implements Environment
func (e RequestEnvironment) GraphicsContext(context.Context) (string, error) {
	v := strings.TrimSpace(e.Header.Get(HeaderGraphics))
	switch strings.ToLower(v) {
	case graphicsUnsupportedV, "0", "false", "no":
		return "", ErrNoGraphics
	case "":
		return "svg", nil
	default:
		return v, nil
	}
}

// PrefersReducedMotion implements Environment
func (e RequestEnvironment) PrefersReducedMotion() bool {
	return strings.EqualFold(strings.Trim(e.Header.Get(HeaderReducedMotion), `" `), "reduce")
}

// DeviceMemoryGB implements Environment
func (e RequestEnvironment) DeviceMemoryGB() (float64, bool) {
	return e.float(HeaderDeviceMemory, legacyDeviceMemory)
}

// HardwareConcurrency implements Environment
func (e RequestEnvironment) HardwareConcurrency() int {
	n, err := strconv.Atoi(strings.TrimSpace(e.Header.Get(HeaderCores)))
	if err != nil {
		return 0
	}
	return n
}

// UserAgent implements Environment. A mobile client hint is folded into the
// agent string so the low-end heuristic sees it.
func (e RequestEnvironment) UserAgent() string {
	ua := e.Header.Get("User-Agent")
	if strings.TrimSpace(e.Header.Get(HeaderMobile)) == "?1" && !mobileUA.MatchString(ua) {
		ua += " Android"
	}
	return ua
}

// TouchPoints implements Environment
func (e RequestEnvironment) TouchPoints() int {
	n, err := strconv.Atoi(strings.TrimSpace(e.Header.Get(HeaderTouch)))
	if err != nil {
		return 0
	}
	return n
}

// DevicePixelRatio implements Environment
func (e RequestEnvironment) DevicePixelRatio() float64 {
	v, _ := e.float(HeaderDPR, legacyDPR)
	return v
}

func (e RequestEnvironment) float(keys ...string) (float64, bool) {
	for _, k := range keys {
		raw := strings.TrimSpace(e.Header.Get(k))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// TerminalEnvironment probes the terminal the process runs in. A terminal
// without color cannot show the animated scene.
type TerminalEnvironment struct {
	// Profile reports the color profile; defaults to termenv's environment detection
	Profile func() termenv.Profile
	// Getenv defaults to os.Getenv
	Getenv func(string) string
}

func (e TerminalEnvironment) getenv(key string) string {
	if e.Getenv != nil {
		return e.Getenv(key)
	}
	return os.Getenv(key)
}

// GraphicsContext implements Environment
func (e TerminalEnvironment) GraphicsContext(context.Context) (string, error) {
	profile := termenv.EnvColorProfile()
	if e.Profile != nil {
		profile = e.Profile()
	}
	if profile == termenv.Ascii {
		return "", fmt.Errorf("%w: terminal has no color support", ErrNoGraphics)
	}
	return "terminal/" + profileName(profile), nil
}

// PrefersReducedMotion implements Environment
func (e TerminalEnvironment) PrefersReducedMotion() bool {
	if e.getenv("NO_MOTION") != "" {
		return true
	}
	v, err := strconv.ParseBool(e.getenv("NETGRAPH_REDUCED_MOTION"))
	return err == nil && v
}

// DeviceMemoryGB implements Environment; terminals do not report memory
func (e TerminalEnvironment) DeviceMemoryGB() (float64, bool) { return 0, false }

// HardwareConcurrency implements Environment
func (e TerminalEnvironment) HardwareConcurrency() int { return runtime.NumCPU() }

// UserAgent implements Environment
func (e TerminalEnvironment) UserAgent() string { return "terminal " + e.getenv("TERM") }

// TouchPoints implements Environment
func (e TerminalEnvironment) TouchPoints() int { return 0 }

// DevicePixelRatio implements Environment
func (e TerminalEnvironment) DevicePixelRatio() float64 { return 1 }

func profileName(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "truecolor"
	case termenv.ANSI256:
		return "ansi256"
	case termenv.ANSI:
		return "ansi"
	default:
		return "ascii"
	}
}
