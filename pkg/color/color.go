package color

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"interpcore/pkg/cache"
)

var (
	colorTitle   = lipgloss.Color("#7C3AED")
	colorGood    = lipgloss.Color("#10B981")
	colorWarn    = lipgloss.Color("#F59E0B")
	colorBad     = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorCounter = lipgloss.Color("#38BDF8")
)

// Palette holds the styles bound to one output.
type Palette struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Number  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewPalette creates styles rendering to w. With noColor set, or when NO_COLOR
// is present, styles render plain text.
func NewPalette(w io.Writer, noColor bool) *Palette {
	r := lipgloss.NewRenderer(w)
	if noColor || os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Palette{
		Title:   r.NewStyle().Bold(true).Foreground(colorTitle),
		Label:   r.NewStyle().Foreground(colorMuted).Width(10),
		Number:  r.NewStyle().Foreground(colorCounter).Align(lipgloss.Right).Width(10),
		Muted:   r.NewStyle().Foreground(colorMuted).Italic(true),
		Error:   r.NewStyle().Bold(true).Foreground(colorBad),
		Warning: r.NewStyle().Foreground(colorWarn),
		Success: r.NewStyle().Foreground(colorGood),
	}
}

func (p *Palette) Errorf(format string, args ...any) string {
	return p.Error.Render("Error:") + " " + fmt.Sprintf(format, args...)
}

func (p *Palette) Warningf(format string, args ...any) string {
	return p.Warning.Render("Warning:") + " " + fmt.Sprintf(format, args...)
}

func (p *Palette) Successf(format string, args ...any) string {
	return p.Success.Render("Success:") + " " + fmt.Sprintf(format, args...)
}

// Row renders one aligned label/value line.
func (p *Palette) Row(label string, value any) string {
	return p.Label.Render(label) + p.Number.Render(fmt.Sprint(value))
}

// CacheReport renders the cache size and its counters, one per line. Zero
// counters are skipped unless empty is set.
func (p *Palette) CacheReport(count int, stats *cache.Statistics, empty bool) string {
	var b strings.Builder

	b.WriteString(p.Title.Render("command cache"))
	b.WriteByte('\n')
	b.WriteString(p.Row("count", count))

	if stats == nil {
		b.WriteByte('\n')
		b.WriteString(p.Muted.Render("statistics disabled"))
		return b.String()
	}

	for t := cache.CountType(0); t < cache.SizeOf; t++ {
		n := stats.Get(t)
		if n == 0 && !empty {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(p.Row(t.String(), n))
	}

	return b.String()
}
