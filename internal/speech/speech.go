// Package speech reads exposure text aloud through an external TTS command.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/lazypower/lexloop/internal/config"
)

// Speaker speaks text in the given language. Implementations choose voice
// and rate per call; no configuration is shared between utterances.
type Speaker interface {
	Speak(ctx context.Context, text, language string) error
}

// Voice is the resolved TTS setting for one utterance.
type Voice struct {
	Name string
	Rate int
}

// Command runs a TTS binary once per utterance.
type Command struct {
	bin     string
	voices  map[string]string
	rates   map[string]int
	rate    int
	timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) error
}

// NewCommand creates a Command speaker from config.
func NewCommand(cfg config.SpeechConfig) *Command {
	bin := cfg.Command
	if bin == "" {
		bin = "espeak-ng"
	}
	rate := cfg.Rate
	if rate <= 0 {
		rate = 175
	}
	return &Command{
		bin:     bin,
		voices:  cfg.Voices,
		rates:   cfg.Rates,
		rate:    rate,
		timeout: 60 * time.Second,
		run:     runCommand,
	}
}

// New returns the configured speaker, or Nop when speech is disabled.
func New(cfg config.SpeechConfig) Speaker {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewCommand(cfg)
}

// VoiceFor resolves the voice and rate for a language tag. Unknown tags fall
// back to the command's default voice.
func (c *Command) VoiceFor(language string) Voice {
	v := Voice{Name: c.voices[language], Rate: c.rate}
	if r, ok := c.rates[language]; ok && r > 0 {
		v.Rate = r
	}
	return v
}

// Speak blocks until the utterance finishes or ctx is done.
func (c *Command) Speak(ctx context.Context, text, language string) error {
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.run(ctx, c.bin, c.args(text, c.VoiceFor(language))...); err != nil {
		return fmt.Errorf("speak %s: %w", language, err)
	}
	return nil
}

func (c *Command) args(text string, v Voice) []string {
	// espeak-ng uses -s for speed, macOS say uses -r.
	rateFlag := "-s"
	if c.bin == "say" {
		rateFlag = "-r"
	}
	var args []string
	if v.Name != "" {
		args = append(args, "-v", v.Name)
	}
	args = append(args, rateFlag, strconv.Itoa(v.Rate), "--", text)
	return args
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (stderr: %s)", name, err, stderr.String())
	}
	return nil
}

// Nop discards every utterance.
type Nop struct{}

// Speak does nothing.
func (Nop) Speak(ctx context.Context, text, language string) error { return nil }
