package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoGraphics is returned by environments without a usable graphics context
var ErrNoGraphics = errors.New("capability: no graphics context")

// Environment is the source of raw facts a probe reads
type Environment interface {
	// GraphicsContext tries to obtain a rendering context and returns the
	// renderer name
	GraphicsContext(ctx context.Context) (renderer string, err error)
	PrefersReducedMotion() bool
	// DeviceMemoryGB returns false when memory is not reported
	DeviceMemoryGB() (float64, bool)
	// HardwareConcurrency returns 0 when unknown
	HardwareConcurrency() int
	UserAgent() string
	TouchPoints() int
	DevicePixelRatio() float64
}

// Prober turns an Environment into a Snapshot
type Prober struct {
	env    Environment
	logger *slog.Logger
}

// NewProber creates a prober for env
func NewProber(env Environment, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{env: env, logger: logger}
}

// Probe reads the environment once. It never returns an error and never
// panics; any failure yields Graphics=No with the other fields best effort.
func (p *Prober) Probe(ctx context.Context) (snap Snapshot) {
	snap = Conservative()
	if p == nil || p.env == nil {
		return snap
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("capability probe panicked, treating as unsupported", "panic", fmt.Sprint(r))
			snap.Graphics = No
		}
	}()

	if err := ctx.Err(); err != nil {
		p.logger.Warn("capability probe cancelled", "error", err)
		return snap
	}

	snap.ReducedMotion = p.env.PrefersReducedMotion()
	snap.Touch = p.env.TouchPoints() > 0
	snap.PixelRatio = CapPixelRatio(p.env.DevicePixelRatio())
	if mem, ok := p.env.DeviceMemoryGB(); ok {
		snap.MemoryGB = &mem
	}
	snap.Cores = p.env.HardwareConcurrency()
	snap.LowEnd = IsLowEnd(snap.MemoryGB, snap.Cores, p.env.UserAgent())
	if snap.Cores <= 0 {
		snap.Cores = 2
	}

	renderer, err := p.env.GraphicsContext(ctx)
	switch {
	case err != nil:
		p.logger.Info("graphics not available", "error", err)
		snap.Graphics = No
	case ctx.Err() != nil:
		snap.Graphics = No
	default:
		snap.Graphics = Yes
		snap.Renderer = renderer
		p.logger.Debug("graphics available", "renderer", renderer)
	}
	return snap
}

// ProbeAsync runs Probe on its own goroutine. The channel receives exactly
// one snapshot and is then closed.
func (p *Prober) ProbeAsync(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		out <- p.Probe(ctx)
	}()
	return out
}
