package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gpl = `GIMP Palette
Name: Two Tone
Columns: 2
# comment
  0   0   0	Black
255 255 255	White
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	require.NoError(t, err)
	assert.Equal(t, "Two Tone", p.Name)
	assert.Equal(t, []RGB{{0, 0, 0}, {255, 255, 255}}, p.Colors)
}

func TestParseGPLEmpty(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\nName: none\n"))
	assert.Error(t, err)
}

func TestLookupInterpolates(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	require.NoError(t, err)
	assert.Equal(t, RGB{0, 0, 0}, p.Lookup(-1))
	assert.Equal(t, RGB{127, 127, 127}, p.Lookup(0.5))
	assert.Equal(t, RGB{255, 255, 255}, p.Lookup(2))
}

func TestLoadOrDefault(t *testing.T) {
	p, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "plasma", p.Name)

	p, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.gpl"))
	assert.Error(t, err)
	assert.Equal(t, "plasma", p.Name)

	path := filepath.Join(t.TempDir(), "two.gpl")
	require.NoError(t, os.WriteFile(path, []byte(gpl), 0644))
	p, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "Two Tone", p.Name)
}

func TestThemeColors(t *testing.T) {
	th := New(DefaultPalette())
	assert.Equal(t, lipgloss.Color("#0d0887"), th.BG())
	assert.Equal(t, lipgloss.Color("#f0f921"), th.Success())
	assert.NotEqual(t, th.StyleFor(th.Symbols.Flash).GetForeground(), th.StyleFor(th.Symbols.Empty).GetForeground())
}
