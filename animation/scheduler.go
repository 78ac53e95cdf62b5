// Package animation runs a cooperative per-frame tween loop: named value
// interpolations advanced once per clock tick, with an accessibility mode
// that jumps straight to the end state.
package animation

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Values is a named-field value map interpolated by a tween.
type Values map[string]float64

// Config describes one tween.
type Config struct {
	Duration time.Duration
	Easing   Easing
	From     Values
	To       Values
	// OnUpdate receives the interpolated values every tick, with linear
	// progress in [0,1].
	OnUpdate func(values Values, progress float64)
	// OnComplete fires exactly once when the tween finishes. A stopped
	// tween never completes.
	OnComplete func()
}

// Tween is one registered interpolation task.
type Tween struct {
	ID        string
	StartTime time.Time
	Config    Config
	active    bool
}

// Active reports whether the tween is still being advanced.
func (t *Tween) Active() bool {
	return t.active
}

// Scheduler advances tweens once per clock tick. The loop arms itself on
// the first animation and disarms once no tween remains, restarting on the
// next CreateAnimation call.
type Scheduler struct {
	mu            sync.Mutex
	clock         Clock
	tweens        map[string]*Tween
	running       bool
	reducedMotion bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReducedMotion makes every animation jump synchronously to its end
// state, honoring a motion-reduction preference of the host environment.
func WithReducedMotion() Option {
	return func(s *Scheduler) {
		s.reducedMotion = true
	}
}

// NewScheduler creates a scheduler driven by the given clock.
func NewScheduler(clock Clock, options ...Option) *Scheduler {
	scheduler := &Scheduler{
		clock:  clock,
		tweens: make(map[string]*Tween),
	}
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

// CreateAnimation registers a tween under id, replacing any tween with the
// same id, and arms the frame loop. Under reduced motion it behaves like
// CreateReducedMotionAnimation.
func (s *Scheduler) CreateAnimation(id string, config Config) {
	if s.reducedMotion || config.Duration <= 0 {
		s.CreateReducedMotionAnimation(id, config)
		return
	}
	if config.Easing == nil {
		config.Easing = Linear
	}

	s.mu.Lock()
	s.tweens[id] = &Tween{
		ID:        id,
		StartTime: s.clock.Now(),
		Config:    config,
		active:    true,
	}
	start := !s.running
	s.running = true
	s.mu.Unlock()

	if start {
		s.clock.Start(s.Tick)
	}
}

// CreateReducedMotionAnimation skips interpolation entirely: it invokes
// OnUpdate with the end values and progress 1, then OnComplete, both
// synchronously, and registers no running tween.
func (s *Scheduler) CreateReducedMotionAnimation(id string, config Config) {
	if config.OnUpdate != nil {
		config.OnUpdate(cloneValues(config.To), 1)
	}
	if config.OnComplete != nil {
		config.OnComplete()
	}
	log.WithField("id", id).Debug("animation: reduced motion jump")
}

// StopAnimation removes a tween without invoking its OnComplete.
func (s *Scheduler) StopAnimation(id string) {
	s.mu.Lock()
	if tween, ok := s.tweens[id]; ok {
		tween.active = false
		delete(s.tweens, id)
	}
	stop := len(s.tweens) == 0 && s.running
	if stop {
		s.running = false
	}
	s.mu.Unlock()

	if stop {
		s.clock.Stop()
	}
}

// StopAllAnimations removes every tween without completion callbacks.
func (s *Scheduler) StopAllAnimations() {
	s.mu.Lock()
	for id, tween := range s.tweens {
		tween.active = false
		delete(s.tweens, id)
	}
	stop := s.running
	s.running = false
	s.mu.Unlock()

	if stop {
		s.clock.Stop()
	}
}

// ActiveCount returns the number of running tweens.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tweens)
}

// Tick advances every tween to now. It is invoked by the clock; tests may
// call it directly.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	tweens := make([]*Tween, 0, len(s.tweens))
	for _, tween := range s.tweens {
		tweens = append(tweens, tween)
	}
	s.mu.Unlock()

	for _, tween := range tweens {
		s.advance(tween, now)
	}

	s.mu.Lock()
	stop := len(s.tweens) == 0 && s.running
	if stop {
		s.running = false
	}
	s.mu.Unlock()

	if stop {
		s.clock.Stop()
	}
}

func (s *Scheduler) advance(tween *Tween, now time.Time) {
	// Re-check under the lock so a Stop that raced the snapshot in Tick
	// cannot deliver one more update.
	s.mu.Lock()
	active := tween.active
	s.mu.Unlock()
	if !active {
		return
	}

	config := tween.Config
	progress := float64(now.Sub(tween.StartTime)) / float64(config.Duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}
	eased := config.Easing(progress)

	values := make(Values, len(config.To))
	for field, to := range config.To {
		from := config.From[field]
		values[field] = from + (to-from)*eased
	}
	if config.OnUpdate != nil {
		config.OnUpdate(values, progress)
	}

	if progress >= 1 {
		s.mu.Lock()
		// Guard against a StopAnimation that raced the callback.
		stillActive := tween.active
		tween.active = false
		delete(s.tweens, tween.ID)
		s.mu.Unlock()

		if stillActive && config.OnComplete != nil {
			config.OnComplete()
		}
	}
}

func cloneValues(values Values) Values {
	out := make(Values, len(values))
	for field, v := range values {
		out[field] = v
	}
	return out
}
