package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// OfflineHeaderStyle replaces HeaderStyle while the server is unreachable.
var OfflineHeaderStyle = HeaderStyle.
	Background(ColorOrange)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps overlays such as help and the command palette.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// NotesStyle frames the rendered notes of an expanded todo.
var NotesStyle = lipgloss.NewStyle().
	PaddingLeft(4).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorSubtle)

// ListItemStyle is the base style for rows in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the row under the cursor.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// GrabbedItemStyle marks the row being dragged.
var GrabbedItemStyle = SelectedItemStyle.
	Foreground(ColorMagenta).
	BorderForeground(ColorMagenta)

// DimmedStyle renders completed todos.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Strikethrough(true)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for the error line of the status bar.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// TitleStyle is the heading of a panel or form.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// PriorityStyle returns a color-coded style for a 1-5 priority, 1 being
// the most urgent.
func PriorityStyle(priority int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case 1:
		return base.Foreground(ColorRed)
	case 2:
		return base.Foreground(ColorOrange)
	case 3:
		return base.Foreground(ColorYellow)
	case 4:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

var categoryPalette = []lipgloss.AdaptiveColor{
	ColorGreen, ColorMagenta, ColorBlue, ColorOrange, ColorYellow,
}

// CategoryStyle returns a stable color for a category id.
func CategoryStyle(id int64) lipgloss.Style {
	if id < 0 {
		id = -id
	}
	c := categoryPalette[id%int64(len(categoryPalette))]
	return lipgloss.NewStyle().Foreground(c).Padding(0, 1)
}
