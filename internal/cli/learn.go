package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/lexloop/internal/config"
	"github.com/lazypower/lexloop/internal/content"
	"github.com/lazypower/lexloop/internal/llm"
	"github.com/lazypower/lexloop/internal/render"
	"github.com/lazypower/lexloop/internal/scheduler"
	"github.com/lazypower/lexloop/internal/speech"
	"github.com/lazypower/lexloop/internal/vocab"
)

var (
	learnVocab    string
	learnFresh    bool
	learnInterval string
	learnMax      int
	learnNoSpeech bool
	learnNoRender bool
	learnSeed     int64
)

// newGenerator is replaced in tests.
var newGenerator = func(cfg config.LLMConfig) (content.Generator, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return content.NewLLMGenerator(client), nil
}

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run the exposure loop until every item is mastered",
	Long: "Restores the saved weights (or starts fresh), then repeatedly picks an item " +
		"at random in proportion to its weight, shows and speaks it, and halves its weight. " +
		"Progress is saved after every exposure; interrupt at any time and run again to resume.",
	RunE: runLearn,
}

func init() {
	f := learnCmd.Flags()
	f.StringVar(&learnVocab, "vocab", "", "vocabulary file, one item per line (default: built-in lists)")
	f.BoolVar(&learnFresh, "fresh", false, "ignore saved weights and start over")
	f.StringVar(&learnInterval, "interval", "", "pause between exposures, e.g. 90s (overrides config)")
	f.IntVar(&learnMax, "max", 0, "stop after this many exposures (0 = until mastered)")
	f.BoolVar(&learnNoSpeech, "no-speech", false, "disable speech output")
	f.BoolVar(&learnNoRender, "no-render", false, "disable the image card")
	f.Int64Var(&learnSeed, "seed", 0, "random seed for a reproducible order")
}

// applyLearnFlags layers explicitly set flags over cfg.
func applyLearnFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("vocab") {
		cfg.Session.Vocabulary = learnVocab
	}
	if f.Changed("interval") {
		cfg.Session.Interval = learnInterval
	}
	if f.Changed("max") {
		cfg.Session.MaxExposures = learnMax
	}
	if learnNoSpeech {
		cfg.Speech.Enabled = false
	}
	if learnNoRender {
		cfg.Render.Enabled = false
	}
	return cfg.Validate()
}

func runLearn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyLearnFlags(cmd, &cfg); err != nil {
		return err
	}
	interval, err := cfg.IntervalDuration()
	if err != nil {
		return err
	}
	path, err := statePath(cfg)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}

	items, err := vocab.Load(cfg.Session.Vocabulary)
	if err != nil {
		return err
	}
	prep, err := scheduler.Prepare(path, items, cfg.Session.MaxRepetitions, learnFresh)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	switch {
	case prep.Restored && len(prep.Added) > 0:
		fmt.Fprintf(stderr, "  restored %s (+%d new items)\n", path, len(prep.Added))
	case prep.Restored:
		fmt.Fprintf(stderr, "  restored %s\n", path)
	default:
		fmt.Fprintf(stderr, "  new session: %d items\n", len(prep.Table))
	}

	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		return fmt.Errorf("content generator: %w", err)
	}

	deps := scheduler.Deps{
		Generator: gen,
		Renderer:  render.New(cfg.Render, cmd.OutOrStdout()),
		Speaker:   speech.New(cfg.Speech),
		Rand:      rand.New(rand.NewSource(seed(cmd))),
		Observer:  progressPrinter(stderr),
	}

	// The journal is advisory; a session runs without it.
	db, err := openDB(cfg)
	if err != nil {
		log.Printf("cli: journal unavailable: %v", err)
	} else {
		defer db.Close()
		deps.Journal = db
	}

	sched := scheduler.New(scheduler.Config{
		StatePath:              path,
		Interval:               interval,
		MaxExposures:           cfg.Session.MaxExposures,
		MaxConsecutiveFailures: cfg.Session.MaxConsecutiveFailures,
	}, prep.Table, deps)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sched.Run(ctx)
	report(stderr, result)
	return exitFor(result, err)
}

func seed(cmd *cobra.Command) int64 {
	if cmd.Flags().Changed("seed") {
		return learnSeed
	}
	return time.Now().UnixNano()
}

func progressPrinter(w io.Writer) func(scheduler.Event) {
	return func(ev scheduler.Event) {
		if ev.Err != nil {
			fmt.Fprintf(w, "  skip %s: %v\n", ev.Item, ev.Err)
			return
		}
		fmt.Fprintf(w, "  %s %d -> %d  sum: %d\n", ev.Item, ev.WeightBefore, ev.WeightAfter, ev.Remaining)
	}
}

func report(w io.Writer, r scheduler.Result) {
	switch r.State {
	case scheduler.Completed:
		fmt.Fprintf(w, "all items mastered (%d exposures this run)\n", r.Exposures)
	case scheduler.Paused:
		fmt.Fprintf(w, "paused after %d exposures, sum: %d\n", r.Exposures, r.Remaining)
	case scheduler.Aborted:
		fmt.Fprintf(w, "aborted after %d exposures, sum: %d\n", r.Exposures, r.Remaining)
	}
	if r.Failures > 0 {
		fmt.Fprintf(w, "  %d generation failures\n", r.Failures)
	}
}

// exitFor maps a finished run to the command error: nil for a clean exit,
// exit code 130 for an interrupt, 1 otherwise.
func exitFor(r scheduler.Result, err error) error {
	switch {
	case err == nil && (r.State == scheduler.Completed || r.State == scheduler.Paused):
		return nil
	case errors.Is(err, scheduler.ErrInterrupted):
		return &exitError{code: ExitInterrupted, err: err}
	case err == nil:
		return &exitError{code: ExitError, err: fmt.Errorf("run ended %s", r.State)}
	default:
		return &exitError{code: ExitError, err: err}
	}
}
