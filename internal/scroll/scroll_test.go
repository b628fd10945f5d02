package scroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jadevit/touchctl/internal/tracker"
)

func twoFingerFrame(ts int64, centroidY, span float32) tracker.FrameSummary {
	return tracker.FrameSummary{
		TimestampMs: ts,
		ActiveCount: 2,
		Centroid:    tracker.Centroid{X: 0.5, Y: centroidY},
		Span:        span,
	}
}

func TestContinuousScrollEmitsStepsOppositeMotionSign(t *testing.T) {
	var in Integrator
	prev := twoFingerFrame(0, 0.50, 0.15)
	havePrev := true

	totalSteps := 0
	y := float32(0.50)
	for i := 1; i <= 10; i++ {
		y += 0.005 // 10 frames * 0.005 = 0.05 total downward motion
		frame := twoFingerFrame(int64(i*10), y, 0.15)
		if steps, ok := in.Update(frame, prev, havePrev, 0.06); ok {
			totalSteps += steps
			assert.Less(t, steps, 0, "downward centroid motion must emit negative (scroll-up convention) steps")
		}
		prev = frame
	}
	assert.InDelta(t, -5, totalSteps, 1, "≈0.05 / STEP_NORM(0.010) ≈ 5 ticks")
}

func TestScrollSuppressedDuringPinchMotion(t *testing.T) {
	var in Integrator
	prev := twoFingerFrame(0, 0.50, 0.20)
	// Span shrinks by 0.10 while centroid also drifts — pinch gate
	// (0.6 * pinch_step) must suppress the scroll emission.
	frame := twoFingerFrame(50, 0.52, 0.10)

	steps, ok := in.Update(frame, prev, true, 0.06)
	assert.False(t, ok)
	assert.Equal(t, 0, steps)
}

func TestScrollResetsAccumulatorWhenNotTwoFingers(t *testing.T) {
	var in Integrator
	prev := twoFingerFrame(0, 0.50, 0.15)
	frame := twoFingerFrame(10, 0.56, 0.15) // well over one step

	steps, ok := in.Update(frame, prev, true, 0.06)
	assert.True(t, ok)
	assert.NotZero(t, steps)

	// Drop to one finger: accumulator must reset, not carry into the next
	// two-finger contact.
	one := tracker.FrameSummary{TimestampMs: 20, ActiveCount: 1}
	_, ok = in.Update(one, frame, true, 0.06)
	assert.False(t, ok)

	resumed := twoFingerFrame(30, 0.50, 0.15)
	_, ok = in.Update(resumed, one, false, 0.06)
	assert.False(t, ok, "no prior two-finger frame this contact yet, nothing to integrate against")
}

func TestTotalStepsBoundedByAccumulatedMotion(t *testing.T) {
	var in Integrator
	prev := twoFingerFrame(0, 0.50, 0.15)
	havePrev := true

	total, sumDelta := 0, float32(0)
	y := float32(0.50)
	for i := 1; i <= 37; i++ {
		y += 0.003
		frame := twoFingerFrame(int64(i*10), y, 0.15)
		sumDelta += frame.Centroid.Y - prev.Centroid.Y
		if steps, ok := in.Update(frame, prev, havePrev, 0.06); ok {
			total += steps
		}
		prev = frame
	}

	bound := absf(sumDelta)/StepNorm + 1
	assert.LessOrEqual(t, absf(float32(total)), bound)
}
