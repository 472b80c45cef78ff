// Package capability decides whether the environment can show the animated
// scene. Probing never fails: anything inconclusive is reported as
// unsupported.
package capability

import (
	"fmt"
	"regexp"
)

// Tri is a boolean that may not be known yet
type Tri uint8

const (
	Unknown Tri = iota
	Yes
	No
)

// String returns the tri-state name
func (t Tri) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// TriOf converts a bool
func TriOf(b bool) Tri {
	if b {
		return Yes
	}
	return No
}

// PixelRatioCap limits the device pixel ratio used for rendering
const PixelRatioCap = 1.5

// LowMemoryGB is the device memory below which a device counts as low end
const LowMemoryGB = 4

// mobileUA matches user agents of phones and tablets
var mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// Snapshot is the result of one probe. It is read-only once produced;
// only ReducedMotion is refreshed by a live preference subscription.
type Snapshot struct {
	Graphics      Tri
	ReducedMotion bool
	LowEnd        bool
	Touch         bool
	PixelRatio    float64

	// MemoryGB is nil when the environment does not report memory
	MemoryGB *float64
	Cores    int
	// Renderer names the graphics backend when the environment reports one
	Renderer string
}

// Supported reports whether the animated scene may be mounted
func (s Snapshot) Supported() bool {
	return s.Graphics == Yes
}

// String summarizes the snapshot for logs
func (s Snapshot) String() string {
	mem := "?"
	if s.MemoryGB != nil {
		mem = fmt.Sprintf("%gGB", *s.MemoryGB)
	}
	return fmt.Sprintf("graphics=%s reducedMotion=%t lowEnd=%t touch=%t dpr=%g mem=%s cores=%d",
		s.Graphics, s.ReducedMotion, s.LowEnd, s.Touch, s.PixelRatio, mem, s.Cores)
}

// Conservative is the snapshot used when probing cannot finish
func Conservative() Snapshot {
	return Snapshot{Graphics: No, PixelRatio: 1, Cores: 2}
}

// IsLowEnd applies the low-end heuristic: little memory, at most two
// cores, or a mobile user agent. Unknown core counts are treated as two.
func IsLowEnd(memoryGB *float64, cores int, userAgent string) bool {
	if cores <= 0 {
		cores = 2
	}
	if memoryGB != nil && *memoryGB < LowMemoryGB {
		return true
	}
	return cores <= 2 || mobileUA.MatchString(userAgent)
}

// CapPixelRatio clamps a reported device pixel ratio to [1, PixelRatioCap]
// (unknown or invalid ratios become 1)
func CapPixelRatio(dpr float64) float64 {
	if !(dpr > 0) {
		return 1
	}
	if dpr > PixelRatioCap {
		return PixelRatioCap
	}
	return dpr
}
