// Package render draws exposure content as an image card and shows it.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lazypower/lexloop/internal/config"
	"github.com/lazypower/lexloop/internal/content"
)

const (
	cardWidth  = 960
	cardHeight = 220
)

// Renderer turns exposure content into an image and presents it.
type Renderer interface {
	Render(c content.ExposureContent) (image.Image, error)
}

// Card draws white text on a black canvas. The PNG goes to Output when set
// and a styled text card goes to Terminal when non-nil.
type Card struct {
	Output   string
	Terminal io.Writer
	face     font.Face
}

// New returns the configured renderer, or Nop when rendering is disabled.
func New(cfg config.RenderConfig, stdout io.Writer) Renderer {
	if !cfg.Enabled {
		return Nop{}
	}
	c := &Card{Output: cfg.Output, face: basicfont.Face7x13}
	if cfg.Terminal {
		c.Terminal = stdout
	}
	return c
}

// Lines returns the text lines shown on a card: the headword with its
// capitalised translation, each explanation sentence, then both examples.
func Lines(c content.ExposureContent) []string {
	lines := []string{fmt.Sprintf("%s - %s", c.Headword, capitalize(c.Translation))}
	for _, s := range strings.Split(c.Explanation, ".") {
		s = strings.TrimSpace(s)
		if len(s) > 1 {
			lines = append(lines, s)
		}
	}
	return append(lines, c.ExampleTarget, c.ExampleSource)
}

// Render draws the card, then writes and prints it. The image is returned
// even when presenting it fails.
func (r *Card) Render(c content.ExposureContent) (image.Image, error) {
	img := r.draw(Lines(c))

	var errs []string
	if r.Output != "" {
		if err := writePNG(img, r.Output); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if r.Terminal != nil {
		if _, err := fmt.Fprintln(r.Terminal, TerminalCard(c)); err != nil {
			errs = append(errs, fmt.Sprintf("print card: %v", err))
		}
	}
	if len(errs) > 0 {
		return img, fmt.Errorf("render: %s", strings.Join(errs, "; "))
	}
	return img, nil
}

func (r *Card) draw(lines []string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	face := r.face
	if face == nil {
		face = basicfont.Face7x13
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: face}

	step := cardHeight / (len(lines) + 1)
	y := step
	for _, line := range lines {
		if y > cardHeight-face.Metrics().Descent.Ceil() {
			break
		}
		d.Dot = fixed.P(cardWidth/20, y)
		d.DrawString(line)
		y += step
	}
	return img
}

// writePNG replaces path with the encoded image through a temp file and a
// rename, so a concurrent reader never sees a partial card.
func writePNG(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".card-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp png: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close png: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod png: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename png: %w", err)
	}
	return nil
}

var (
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#39FF14"))
	explainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0"))
	targetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166"))
	sourceStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#8ECAE6"))
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#008F11")).
	Padding(0, 2).
	Width(cardWidth / 12)

// TerminalCard formats the content as a bordered block for the terminal.
func TerminalCard(c content.ExposureContent) string {
	lines := Lines(c)
	styled := make([]string, 0, len(lines))
	styled = append(styled, headStyle.Render(lines[0]))
	for _, l := range lines[1 : len(lines)-2] {
		styled = append(styled, explainStyle.Render(l))
	}
	styled = append(styled,
		"",
		targetStyle.Render(lines[len(lines)-2]),
		sourceStyle.Render(lines[len(lines)-1]),
	)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, styled...))
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Nop renders nothing.
type Nop struct{}

// Render returns a nil image.
func (Nop) Render(c content.ExposureContent) (image.Image, error) { return nil, nil }
