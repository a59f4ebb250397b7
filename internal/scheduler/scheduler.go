// Package scheduler drives the exposure loop: pick a weighted-random item,
// present it, halve its weight, persist, pause, repeat until every weight
// reaches zero.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/lazypower/lexloop/internal/content"
	"github.com/lazypower/lexloop/internal/priority"
	"github.com/lazypower/lexloop/internal/render"
	"github.com/lazypower/lexloop/internal/speech"
	"github.com/lazypower/lexloop/internal/store"
)

var (
	// ErrInterrupted is returned when the context is cancelled mid-session.
	ErrInterrupted = errors.New("scheduler: interrupted")
	// ErrTooManyFailures is returned when generation keeps failing in a row.
	ErrTooManyFailures = errors.New("scheduler: too many consecutive generation failures")
)

// State is the lifecycle position of a Scheduler.
type State int

const (
	Idle State = iota
	Running
	Completed
	Aborted
	Paused // exposure cap reached with items left; resumes next run
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Journal records runs and exposures. *store.DB implements it.
type Journal interface {
	StartRun(vocabSize int) (string, error)
	FinishRun(id, status string, exposures int) error
	RecordExposure(e store.Exposure) (int64, error)
}

// Config controls pacing and stop conditions.
type Config struct {
	StatePath              string
	Interval               time.Duration // pause after each successful exposure
	MaxExposures           int           // 0 = run until mastered
	MaxConsecutiveFailures int           // 0 = retry forever
}

// Deps are the collaborators and the random source. Generator and Rand are
// required; the rest default to no-ops.
type Deps struct {
	Generator content.Generator
	Renderer  render.Renderer
	Speaker   speech.Speaker
	Journal   Journal
	Rand      *rand.Rand
	Observer  func(Event)

	// Hooks replaced in tests.
	Sleep   func(ctx context.Context, d time.Duration) error
	Persist func(t priority.Table, path string) error
}

// Event describes one finished loop iteration.
type Event struct {
	Item         priority.Item
	Content      content.ExposureContent
	WeightBefore priority.Weight
	WeightAfter  priority.Weight
	Remaining    int
	Err          error // set when generation failed and the item was skipped
}

// Result summarises a finished run.
type Result struct {
	State     State
	Exposures int
	Failures  int
	Remaining int
	Err       error
}

// Scheduler owns the priority table for the life of the process.
type Scheduler struct {
	cfg   Config
	deps  Deps
	table priority.Table
	state State
	runID string

	exposures     int
	failures      int
	failureStreak int
	persistFailed bool
}

// New creates a Scheduler over table. Missing optional deps get no-op
// implementations.
func New(cfg Config, table priority.Table, deps Deps) *Scheduler {
	if deps.Renderer == nil {
		deps.Renderer = render.Nop{}
	}
	if deps.Speaker == nil {
		deps.Speaker = speech.Nop{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	if deps.Persist == nil {
		deps.Persist = priority.Persist
	}
	return &Scheduler{cfg: cfg, deps: deps, table: table, state: Idle}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Table returns the live table. Callers must not mutate it while Run is active.
func (s *Scheduler) Table() priority.Table { return s.table }

// Run executes the loop until Completed, Paused or Aborted. The returned
// error is non-nil exactly when the run ends Aborted.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	if s.state != Idle {
		return s.result(nil), fmt.Errorf("scheduler: run called in state %s", s.state)
	}
	if s.deps.Generator == nil {
		return s.finish(Aborted, errors.New("scheduler: no content generator"))
	}
	s.state = Running
	s.startRun()

	for {
		if ctx.Err() != nil {
			return s.finish(Aborted, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err()))
		}
		if priority.TotalRemaining(s.table) == 0 {
			return s.finish(Completed, nil)
		}
		if s.cfg.MaxExposures > 0 && s.exposures >= s.cfg.MaxExposures {
			return s.finish(Paused, nil)
		}

		item, err := priority.Select(s.table, s.deps.Rand)
		if errors.Is(err, priority.ErrExhausted) {
			return s.finish(Completed, nil)
		}
		if err != nil {
			return s.finish(Aborted, err)
		}

		if err := s.expose(ctx, item); err != nil {
			return s.finish(Aborted, err)
		}
	}
}

// expose runs one iteration for item. It returns an error only when the
// run must abort.
func (s *Scheduler) expose(ctx context.Context, item priority.Item) error {
	before := s.table[item]

	c, err := s.deps.Generator.Generate(ctx, item)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
		s.failures++
		s.failureStreak++
		log.Printf("scheduler: generate %q: %v", item, err)
		s.journal(store.Exposure{
			Item: string(item), WeightBefore: int(before), WeightAfter: int(before),
			Status: store.ExposureFailed, Error: err.Error(),
		})
		s.notify(Event{Item: item, WeightBefore: before, WeightAfter: before, Remaining: priority.TotalRemaining(s.table), Err: err})
		if limit := s.cfg.MaxConsecutiveFailures; limit > 0 && s.failureStreak >= limit {
			return fmt.Errorf("%w (%d)", ErrTooManyFailures, s.failureStreak)
		}
		return nil
	}
	s.failureStreak = 0

	s.present(ctx, c)

	after, err := priority.Decay(s.table, item)
	if err != nil {
		return err
	}
	if err := s.deps.Persist(s.table, s.cfg.StatePath); err != nil {
		s.persistFailed = true
		return fmt.Errorf("persist state: %w", err)
	}
	s.exposures++

	s.journal(store.Exposure{
		Item: string(item), WeightBefore: int(before), WeightAfter: int(after),
		Status: store.ExposureShown,
	})
	s.notify(Event{Item: item, Content: c, WeightBefore: before, WeightAfter: after, Remaining: priority.TotalRemaining(s.table)})

	if priority.TotalRemaining(s.table) == 0 {
		return nil
	}
	// An interrupted pause is picked up at the top of the loop.
	_ = s.deps.Sleep(ctx, s.cfg.Interval)
	return nil
}

// present renders and speaks c. Failures are logged and never stop decay.
func (s *Scheduler) present(ctx context.Context, c content.ExposureContent) {
	if _, err := s.deps.Renderer.Render(c); err != nil {
		log.Printf("scheduler: render %q: %v", c.Headword, err)
	}
	for _, u := range c.Utterances() {
		if ctx.Err() != nil {
			return
		}
		if err := s.deps.Speaker.Speak(ctx, u.Text, u.Language); err != nil {
			log.Printf("scheduler: speak %q: %v", c.Headword, err)
		}
	}
}

func (s *Scheduler) finish(state State, err error) (Result, error) {
	s.state = state

	if !s.persistFailed && s.table != nil {
		if perr := s.deps.Persist(s.table, s.cfg.StatePath); perr != nil {
			log.Printf("scheduler: final flush: %v", perr)
			if err == nil {
				s.state = Aborted
				err = fmt.Errorf("persist state: %w", perr)
			}
		}
	}

	s.finishRun()
	s.release()
	return s.result(err), err
}

func (s *Scheduler) result(err error) Result {
	return Result{
		State:     s.state,
		Exposures: s.exposures,
		Failures:  s.failures,
		Remaining: priority.TotalRemaining(s.table),
		Err:       err,
	}
}

func (s *Scheduler) startRun() {
	if s.deps.Journal == nil {
		return
	}
	id, err := s.deps.Journal.StartRun(len(s.table))
	if err != nil {
		log.Printf("scheduler: journal start: %v", err)
		return
	}
	s.runID = id
}

func (s *Scheduler) finishRun() {
	if s.deps.Journal == nil || s.runID == "" {
		return
	}
	status := store.RunAborted
	switch s.state {
	case Completed:
		status = store.RunCompleted
	case Paused:
		status = store.RunPaused
	}
	if err := s.deps.Journal.FinishRun(s.runID, status, s.exposures); err != nil {
		log.Printf("scheduler: journal finish: %v", err)
	}
}

// journal writes are advisory; the state file is the source of truth.
func (s *Scheduler) journal(e store.Exposure) {
	if s.deps.Journal == nil || s.runID == "" {
		return
	}
	e.RunID = s.runID
	if _, err := s.deps.Journal.RecordExposure(e); err != nil {
		log.Printf("scheduler: journal exposure %q: %v", e.Item, err)
	}
}

func (s *Scheduler) notify(ev Event) {
	if s.deps.Observer != nil {
		s.deps.Observer(ev)
	}
}

// release closes collaborators that hold resources.
func (s *Scheduler) release() {
	for _, c := range []any{s.deps.Generator, s.deps.Renderer, s.deps.Speaker} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Printf("scheduler: close %T: %v", c, err)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
