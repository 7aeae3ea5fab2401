package todolist

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	rendererMu sync.Mutex
	// renderers are cached per style and wrap width.
	renderers = map[string]*glamour.TermRenderer{}
)

// RenderNotes renders todo notes as markdown wrapped to width. The raw text
// is returned when rendering fails.
func RenderNotes(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	width = max(width, 10)

	style := markdownStyle()
	key := fmt.Sprintf("%s:%d", style, width)

	rendererMu.Lock()
	r := renderers[key]
	if r == nil {
		cfg := styleConfig(style)
		zero := uint(0)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			rendererMu.Unlock()
			return md
		}
		renderers[key] = rr
		r = rr
	}
	rendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func styleConfig(name string) ansi.StyleConfig {
	if name == "light" {
		return styles.LightStyleConfig
	}
	return styles.DarkStyleConfig
}

var (
	styleOnce sync.Once
	styleName string
)

// markdownStyle picks dark or light once. TODOLIST_MD_STYLE overrides the
// terminal's background detection.
func markdownStyle() string {
	styleOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("TODOLIST_MD_STYLE"))) {
		case "light":
			styleName = "light"
		case "dark":
			styleName = "dark"
		default:
			styleName = "dark"
			if !lipgloss.HasDarkBackground() {
				styleName = "light"
			}
		}
	})
	return styleName
}
