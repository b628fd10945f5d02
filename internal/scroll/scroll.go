// Package scroll implements the continuous two-finger-pan integrator (spec
// §4.4): an integrate-and-fire scheme that converts centroid deltas into
// discrete wheel ticks, with a dead-band that yields to pinch motion.
package scroll

import "github.com/jadevit/touchctl/internal/tracker"

// StepNorm is the normalized-Y distance that accumulates into one wheel
// tick.
const StepNorm = 0.010

// Gain scales the accumulated delta before it is converted to steps.
const Gain = 1.0

// pinchGateFactor sets the dead-band against pinch motion: scroll is
// suppressed whenever |Δspan| is at least this fraction of pinch_step.
const pinchGateFactor = 0.6

// Integrator holds the running accumulator across frames. It is active
// only when both the current and immediately prior frame report exactly
// two active slots.
type Integrator struct {
	acc float32
}

// Update consumes the current frame (and the immediately prior one, if
// any) and returns a signed wheel-tick count, or ok=false if nothing
// should be emitted this frame.
//
// Sign convention: downward touch motion (increasing centroid.Y) yields a
// negative step count, matching the wheel-up/scroll-up convention (spec
// §4.4).
func (in *Integrator) Update(frame, prev tracker.FrameSummary, havePrev bool, pinchStep float32) (steps int, ok bool) {
	if frame.ActiveCount != 2 {
		in.acc = 0
		return 0, false
	}
	if !havePrev || prev.ActiveCount != 2 {
		return 0, false
	}

	dspan := absf(frame.Span - prev.Span)
	pinchGate := pinchGateFactor * pinchStep
	if dspan >= pinchGate {
		return 0, false
	}

	dy := frame.Centroid.Y - prev.Centroid.Y
	in.acc += dy

	// Truncate toward zero rather than a literal floor: a symmetric
	// truncation keeps up-scroll and down-scroll dead-bands equal in
	// magnitude (see DESIGN.md).
	s := int(float64(in.acc/StepNorm) * Gain)
	if s == 0 {
		return 0, false
	}
	in.acc -= float32(s) * StepNorm / Gain
	return -s, true
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
