package animation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasings(t *testing.T) {
	for name, easing := range map[string]Easing{
		"linear":         Linear,
		"easeInOutCubic": EaseInOutCubic,
		"easeOutQuart":   EaseOutQuart,
		"easeInOutQuart": EaseInOutQuart,
	} {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, 0, easing(0), 1e-9)
			assert.InDelta(t, 1, easing(1), 1e-9)
			for p := 0.0; p <= 1; p += 0.05 {
				v := easing(p)
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		})
	}
}

func TestSchedulerCompletion(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	var updates []float64
	var finalValues Values
	completions := 0

	scheduler.CreateAnimation("pan", Config{
		Duration: 100 * time.Millisecond,
		Easing:   Linear,
		From:     Values{"offset": 0},
		To:       Values{"offset": 10},
		OnUpdate: func(values Values, progress float64) {
			updates = append(updates, progress)
			finalValues = values
		},
		OnComplete: func() { completions++ },
	})

	require.Equal(t, 1, scheduler.ActiveCount())
	require.True(t, clock.Running())

	clock.Advance(50 * time.Millisecond)
	require.NotEmpty(t, updates)
	assert.InDelta(t, 0.5, updates[len(updates)-1], 1e-9)
	assert.InDelta(t, 5, finalValues["offset"], 1e-9)
	assert.Zero(t, completions)

	clock.Advance(60 * time.Millisecond)
	assert.InDelta(t, 1, updates[len(updates)-1], 1e-9)
	assert.InDelta(t, 10, finalValues["offset"], 1e-9)
	assert.Equal(t, 1, completions)
	assert.Zero(t, scheduler.ActiveCount())
	assert.False(t, clock.Running(), "loop stops once no tween remains")

	// further ticks never re-complete
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, completions)
}

func TestSchedulerInterpolatesFields(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	var got Values
	scheduler.CreateAnimation("zoom", Config{
		Duration: 100 * time.Millisecond,
		Easing:   Linear,
		From:     Values{"zoom": 1, "width": 8},
		To:       Values{"zoom": 2, "width": 16},
		OnUpdate: func(values Values, _ float64) { got = values },
	})

	clock.Advance(25 * time.Millisecond)
	assert.InDelta(t, 1.25, got["zoom"], 1e-9)
	assert.InDelta(t, 10, got["width"], 1e-9)
}

func TestStopAnimation(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	completions := 0
	scheduler.CreateAnimation("pan", Config{
		Duration:   100 * time.Millisecond,
		From:       Values{"x": 0},
		To:         Values{"x": 1},
		OnComplete: func() { completions++ },
	})

	scheduler.StopAnimation("pan")
	assert.Zero(t, scheduler.ActiveCount())
	assert.False(t, clock.Running())

	clock.Advance(200 * time.Millisecond)
	assert.Zero(t, completions, "stopped tween must not complete")
}

func TestStopDuringTickSuppressesUpdate(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	updates := 0
	scheduler.CreateAnimation("pan", Config{
		Duration: 100 * time.Millisecond,
		From:     Values{"x": 0},
		To:       Values{"x": 1},
		OnUpdate: func(Values, float64) { updates++ },
	})

	// Stop after the tick loop has already snapshotted the tween; the
	// pending advance must not deliver another update.
	tween := scheduler.tweens["pan"]
	require.NotNil(t, tween)
	scheduler.StopAnimation("pan")
	scheduler.advance(tween, time.Unix(0, 0).Add(50*time.Millisecond))

	assert.Zero(t, updates)
}

func TestStopAllAnimations(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	completions := 0
	for _, id := range []string{"a", "b", "c"} {
		scheduler.CreateAnimation(id, Config{
			Duration:   time.Second,
			From:       Values{"v": 0},
			To:         Values{"v": 1},
			OnComplete: func() { completions++ },
		})
	}
	require.Equal(t, 3, scheduler.ActiveCount())

	scheduler.StopAllAnimations()
	assert.Zero(t, scheduler.ActiveCount())
	clock.Advance(2 * time.Second)
	assert.Zero(t, completions)
}

func TestLoopRestarts(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	scheduler := NewScheduler(clock)

	scheduler.CreateAnimation("first", Config{
		Duration: 10 * time.Millisecond,
		From:     Values{"v": 0},
		To:       Values{"v": 1},
	})
	clock.Advance(20 * time.Millisecond)
	require.False(t, clock.Running())

	scheduler.CreateAnimation("second", Config{
		Duration: 10 * time.Millisecond,
		From:     Values{"v": 0},
		To:       Values{"v": 1},
	})
	assert.True(t, clock.Running(), "loop restarts on the next animation")
}

func TestReducedMotion(t *testing.T) {
	t.Run("explicit call is synchronous", func(t *testing.T) {
		clock := NewManualClock(time.Unix(0, 0))
		scheduler := NewScheduler(clock)

		var gotProgress float64
		var gotValues Values
		completions := 0
		scheduler.CreateReducedMotionAnimation("jump", Config{
			Duration: time.Second,
			From:     Values{"x": 0},
			To:       Values{"x": 42},
			OnUpdate: func(values Values, progress float64) {
				gotValues = values
				gotProgress = progress
			},
			OnComplete: func() { completions++ },
		})

		assert.InDelta(t, 1, gotProgress, 1e-9)
		assert.InDelta(t, 42, gotValues["x"], 1e-9)
		assert.Equal(t, 1, completions)
		assert.Zero(t, scheduler.ActiveCount())
		assert.False(t, clock.Running())
	})

	t.Run("scheduler preference applies to every animation", func(t *testing.T) {
		clock := NewManualClock(time.Unix(0, 0))
		scheduler := NewScheduler(clock, WithReducedMotion())

		completions := 0
		scheduler.CreateAnimation("jump", Config{
			Duration:   time.Second,
			From:       Values{"x": 0},
			To:         Values{"x": 1},
			OnComplete: func() { completions++ },
		})
		assert.Equal(t, 1, completions)
		assert.Zero(t, scheduler.ActiveCount())
	})
}
