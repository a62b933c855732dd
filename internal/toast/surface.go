// Package toast renders notifications as one-line terminal toasts.
package toast

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/backoffice/internal/core/notify"
	"golang.org/x/term"
)

// Options configures a Surface.
type Options struct {
	Theme string
	TTL   time.Duration
	Max   int
	// Dedupe skips an error or warning identical to one still on screen.
	// Successes and info toasts always render, one per outcome.
	Dedupe bool
	// Color enables styled output. Use IsTerminal to decide.
	Color bool
}

// Surface writes each published notification to w. It is meant to be
// subscribed to a notify.Bus.
type Surface struct {
	mu     sync.Mutex
	w      io.Writer
	ctrl   *Controller
	dedupe bool
	last   time.Time
	now    func() time.Time

	color   bool
	badges  map[notify.Level]lipgloss.Style
	message lipgloss.Style
}

// NewSurface creates a surface writing to w. An unknown theme falls back to
// DefaultTheme.
func NewSurface(w io.Writer, opts Options) *Surface {
	palette, ok := GetPalette(opts.Theme)
	if !ok {
		palette, _ = GetPalette(DefaultTheme)
	}

	s := &Surface{
		w:      w,
		ctrl:   NewController(opts.TTL, opts.Max),
		dedupe: opts.Dedupe,
		now:    time.Now,
		color:  opts.Color,
	}

	r := lipgloss.NewRenderer(w)
	badge := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(c)
	}
	s.badges = map[notify.Level]lipgloss.Style{
		notify.LevelSuccess: badge(palette.Success),
		notify.LevelInfo:    badge(palette.Info),
		notify.LevelWarning: badge(palette.Warning),
		notify.LevelError:   badge(palette.Error),
	}
	s.message = r.NewStyle().Foreground(palette.Muted)

	return s
}

// Show renders n unless dedupe is on and n repeats an active error or
// warning.
func (s *Surface) Show(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.last.IsZero() {
		s.ctrl.Tick(now.Sub(s.last))
	}
	s.last = now

	if s.dedupe && repeatable(n.Level) && s.ctrl.Active(n.Level, n.Message) {
		return
	}
	s.ctrl.Push(n)

	_, _ = fmt.Fprintln(s.w, s.Render(n))
}

func repeatable(l notify.Level) bool {
	return l == notify.LevelError || l == notify.LevelWarning
}

// Active returns the toasts still within their TTL.
func (s *Surface) Active() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, len(s.ctrl.Toasts()))
	copy(out, s.ctrl.Toasts())
	return out
}

// Render formats n as a single line.
func (s *Surface) Render(n notify.Notification) string {
	label := badgeText(n.Level)
	if !s.color {
		return label + " " + n.Message
	}
	style, ok := s.badges[n.Level]
	if !ok {
		style = s.message
	}
	return style.Render(label) + " " + n.Message
}

func badgeText(l notify.Level) string {
	switch l {
	case notify.LevelSuccess:
		return "✔"
	case notify.LevelWarning:
		return "!"
	case notify.LevelError:
		return "✖"
	default:
		return "•"
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
