package toast

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors a toast line is drawn with.
type Palette struct {
	Muted   lipgloss.Color
	Info    lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

var themes = map[string]Palette{
	"tokyo-night": {
		Muted:   lipgloss.Color("#565f89"),
		Info:    lipgloss.Color("#7aa2f7"),
		Success: lipgloss.Color("#9ece6a"),
		Warning: lipgloss.Color("#e0af68"),
		Error:   lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Muted:   lipgloss.Color("#665c54"),
		Info:    lipgloss.Color("#83a598"),
		Success: lipgloss.Color("#b8bb26"),
		Warning: lipgloss.Color("#fabd2f"),
		Error:   lipgloss.Color("#fb4934"),
	},
	"catppuccin": {
		Muted:   lipgloss.Color("#6c7086"), // Overlay0
		Info:    lipgloss.Color("#89b4fa"), // Blue
		Success: lipgloss.Color("#a6e3a1"), // Green
		Warning: lipgloss.Color("#f9e2af"), // Yellow
		Error:   lipgloss.Color("#f38ba8"), // Red
	},
	"onedark": {
		Muted:   lipgloss.Color("#5c6370"),
		Info:    lipgloss.Color("#61afef"),
		Success: lipgloss.Color("#98c379"),
		Warning: lipgloss.Color("#e5c07b"),
		Error:   lipgloss.Color("#e06c75"),
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}
