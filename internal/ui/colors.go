package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles is the palette used by the CLI.
var Styles = NewPalette("#1DB954", "#04B575", "#FF5F57", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) Title(format string, args ...any) string {
	return p.title.Render(fmt.Sprintf(format, args...))
}

// OK renders a success line prefixed with a check mark.
func (p *Palette) OK(format string, args ...any) string {
	return p.ok.Render("✓ " + fmt.Sprintf(format, args...))
}

// Err renders a failure line prefixed with a cross.
func (p *Palette) Err(format string, args ...any) string {
	return p.err.Render("✗ " + fmt.Sprintf(format, args...))
}

// Warn renders a warning line prefixed with a warning sign.
func (p *Palette) Warn(format string, args ...any) string {
	return p.warn.Render("⚠ " + fmt.Sprintf(format, args...))
}

func (p *Palette) Help(format string, args ...any) string {
	return p.help.Render(fmt.Sprintf(format, args...))
}
