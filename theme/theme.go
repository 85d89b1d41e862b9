package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

// Symbols used by the piano roll grid
type Symbols struct {
	Empty     rune // · empty cell
	BarLine   rune // | empty cell on a bar boundary
	NoteStart rune // ● note onset
	NoteBody  rune // ─ note sustain
	Selected  rune // ◉ selected note onset
	Flash     rune // ◆ note just triggered
	Playhead  rune // ▶ playback cursor
	Cursor    rune // ○ edit cursor on empty
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Empty:     '·',
			BarLine:   '|',
			NoteStart: '●',
			NoteBody:  '─',
			Selected:  '◉',
			Flash:     '◆',
			Playhead:  '▶',
			Cursor:    '○',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// StyleFor returns the colour a grid symbol is drawn in
func (t *Theme) StyleFor(r rune) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch r {
	case t.Symbols.NoteStart, t.Symbols.NoteBody:
		return s.Foreground(t.Accent())
	case t.Symbols.Selected:
		return s.Foreground(t.Cursor()).Bold(true)
	case t.Symbols.Flash:
		return s.Foreground(t.Success()).Bold(true)
	case t.Symbols.Playhead:
		return s.Foreground(t.Active())
	case t.Symbols.Cursor:
		return s.Foreground(t.Cursor())
	default:
		return s.Foreground(t.Muted())
	}
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
