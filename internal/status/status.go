package status

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"pubgstats/internal/stats"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// clearLine returns the cursor to column 0 and erases the line
const clearLine = "\r\x1b[2K"

// Line renders the aggregator as one overwritten terminal line
type Line struct {
	mu   sync.Mutex
	out  io.Writer
	last string

	region lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
}

// NewLine creates a status line writing to out. Colours are used only when
// out is a terminal that supports them.
func NewLine(out io.Writer) *Line {
	r := lipgloss.NewRenderer(out)
	return &Line{
		out:    out,
		region: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1D1F27", Dark: "#EDEDEC"}),
		label:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#666666"}),
		value:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1D4AFF", Dark: "#F7A501"}),
		muted:  r.NewStyle().Faint(true),
	}
}

// Render redraws the line from a breakdown
func (l *Line) Render(rows []stats.RegionBreakdown, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last = l.format(rows, total)
	fmt.Fprint(l.out, clearLine+l.last)
}

// Waiting redraws the last line with the pending delay appended
func (l *Line) Waiting(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := l.muted.Render(fmt.Sprintf("Waiting for %ds", int(d/time.Second)))
	if l.last == "" {
		fmt.Fprint(l.out, clearLine+msg)
		return
	}
	fmt.Fprint(l.out, clearLine+l.last+" | "+msg)
}

func (l *Line) format(rows []stats.RegionBreakdown, total int) string {
	parts := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		parts = append(parts, l.formatRegion(row))
	}
	parts = append(parts, l.value.Render(humanize.Comma(int64(total)))+l.label.Render(" matches processed"))
	return strings.Join(parts, " | ")
}

func (l *Line) formatRegion(row stats.RegionBreakdown) string {
	var b strings.Builder
	b.WriteString(l.region.Render(row.Name))
	b.WriteString(l.label.Render(" (") + l.value.Render(Percent(row.Share)) + l.label.Render(")"))

	fields := []struct {
		name string
		v    float64
	}{
		{"fpp", row.FPP},
		{"tpp", row.TPP},
		{"solo tpp", row.SoloTPP},
		{"solo fpp", row.SoloFPP},
		{"duo tpp", row.DuoTPP},
		{"duo fpp", row.DuoFPP},
		{"squad tpp", row.SquadTPP},
		{"squad fpp", row.SquadFPP},
	}
	for _, f := range fields {
		b.WriteString(l.label.Render(" " + f.name + ": "))
		b.WriteString(l.value.Render(Percent(f.v)))
	}
	return b.String()
}

// Percent formats a whole-number percentage; NaN renders as n/a
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", v)
}
