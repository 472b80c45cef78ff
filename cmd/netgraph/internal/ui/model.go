package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/prefs"
	"github.com/recera/netgraph/pkg/surface"
)

// scrollStep is the scroll progress one key press adds
const scrollStep = 0.05

// chromeLines is the height of the status and help lines under the surface
const chromeLines = 2

// Options configures the preview
type Options struct {
	Logger *slog.Logger
	Gate   gate.Options
	// Env is probed once at start
	Env capability.Environment
	// Prefs supplies and persists the reduce-motion preference; nil keeps
	// it in memory
	Prefs *prefs.Store
	// FPS is the frame rate of the preview
	FPS   int
	Color bool
}

// Messages
type frameMsg time.Time
type probedMsg capability.Snapshot
type prefMsg bool

// Model is the terminal preview. bubbletea calls Update on one goroutine,
// which also owns the gate.
type Model struct {
	// Window dimensions
	width  int
	height int
	sized  bool

	gate   *gate.Gate
	surf   *surface.TerminalSurface
	prober *capability.Prober
	prefs  *prefs.Store
	logger *slog.Logger

	// probed holds the snapshot until the window size is known
	probed *capability.Snapshot

	start    time.Time
	interval time.Duration
	scroll   float64
	reduce   bool
	prefCh   chan bool
	unsub    func()

	keys     KeyMap
	help     help.Model
	showHelp bool
	quitting bool
	err      error
}

// NewModel creates the preview model
func NewModel(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	surf := surface.NewTerminalSurface(0, 0, opts.Color)
	opts.Gate.Logger = opts.Logger
	m := &Model{
		gate:     gate.New(surf, opts.Gate),
		surf:     surf,
		prober:   capability.NewProber(opts.Env, opts.Logger),
		prefs:    opts.Prefs,
		logger:   opts.Logger,
		interval: time.Second / time.Duration(opts.FPS),
		keys:     DefaultKeyMap,
		help:     help.New(),
		prefCh:   make(chan bool, 1),
	}
	if m.prefs != nil {
		m.reduce = m.prefs.ReduceMotion()
		m.unsub = m.prefs.Subscribe(func(v bool) {
			// Keep only the newest value
			select {
			case <-m.prefCh:
			default:
			}
			select {
			case m.prefCh <- v:
			default:
			}
		})
	} else if opts.Env != nil {
		m.reduce = opts.Env.PrefersReducedMotion()
	}
	m.gate.SetReduceMotion(m.reduce)
	return m
}

// Gate exposes the gate for inspection
func (m *Model) Gate() *gate.Gate { return m.gate }

// Init starts the probe and the frame clock
func (m *Model) Init() tea.Cmd {
	m.start = time.Now()
	return tea.Batch(m.probe(), m.tick(), m.waitPref())
}

func (m *Model) probe() tea.Cmd {
	return func() tea.Msg {
		return probedMsg(m.prober.Probe(context.Background()))
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) waitPref() tea.Cmd {
	if m.prefs == nil {
		return nil
	}
	ch := m.prefCh
	return func() tea.Msg { return prefMsg(<-ch) }
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.sized = true
		if m.surf.Resize(msg.Width, max(msg.Height-chromeLines, 0)) {
			m.gate.SurfaceRestored()
		}
		m.resolve()

	case probedMsg:
		snap := capability.Snapshot(msg)
		m.probed = &snap
		m.resolve()

	case frameMsg:
		if m.quitting {
			return m, nil
		}
		m.gate.Frame(time.Time(msg).Sub(m.start))
		return m, m.tick()

	case prefMsg:
		m.setReduce(bool(msg))
		return m, m.waitPref()

	case tea.MouseMsg:
		if m.width > 0 && m.height > 0 {
			x := float64(msg.X)/float64(m.width)*2 - 1
			y := 1 - float64(msg.Y)/float64(m.height)*2
			m.gate.SetPointer(x, y)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.setScroll(m.scroll - scrollStep)

	case key.Matches(msg, m.keys.Down):
		m.setScroll(m.scroll + scrollStep)

	case key.Matches(msg, m.keys.Motion):
		if m.prefs == nil {
			m.setReduce(!m.reduce)
			break
		}
		v, err := m.prefs.Toggle()
		m.err = err
		m.setReduce(v)

	case key.Matches(msg, m.keys.Reset):
		if m.prefs != nil {
			m.err = m.prefs.Reset()
			m.setReduce(m.prefs.ReduceMotion())
		}

	case key.Matches(msg, m.keys.Lose):
		m.surf.Lost("lost by user")

	case key.Matches(msg, m.keys.Restore):
		m.gate.SurfaceRestored()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

// resolve hands the probe result to the gate once the surface has a size
func (m *Model) resolve() {
	if m.probed == nil || !m.sized {
		return
	}
	snap := *m.probed
	m.probed = nil
	m.gate.Resolve(snap)
}

func (m *Model) setScroll(v float64) {
	m.scroll = min(max(v, 0), 1)
	m.gate.SetScroll(m.scroll)
}

func (m *Model) setReduce(v bool) {
	m.reduce = v
	m.gate.SetReduceMotion(v)
}

func (m *Model) quit() {
	if m.quitting {
		return
	}
	m.quitting = true
	if m.unsub != nil {
		m.unsub()
	}
	m.gate.Unmount()
}

// View renders the surface and the status line
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}
