// Package gestures implements the two/three-finger gesture state machine
// described in spec §4.3, driven by tracker.FrameSummary values.
package gestures

import (
	"github.com/jadevit/touchctl/internal/config"
	"github.com/jadevit/touchctl/internal/tracker"
)

// Gesture is the tagged variant of recognized gestures (spec §3).
type Gesture int

const (
	TwoFingerTap Gesture = iota
	TwoFingerSwipeUp
	TwoFingerSwipeDown
	TwoFingerSwipeLeft
	TwoFingerSwipeRight
	PinchScaleIn
	PinchScaleOut
	ThreeFingerTap
)

func (g Gesture) String() string {
	switch g {
	case TwoFingerTap:
		return "two_finger.tap"
	case TwoFingerSwipeUp:
		return "two_finger.swipe_up"
	case TwoFingerSwipeDown:
		return "two_finger.swipe_down"
	case TwoFingerSwipeLeft:
		return "two_finger.swipe_left"
	case TwoFingerSwipeRight:
		return "two_finger.swipe_right"
	case PinchScaleIn:
		return "pinch.scale_in"
	case PinchScaleOut:
		return "pinch.scale_out"
	case ThreeFingerTap:
		return "three_finger.tap"
	default:
		return "unknown"
	}
}

// twoFingerState tracks the armed/classified lifecycle of the current
// 2-finger regime (spec §3: TwoFingerState).
type twoFingerState struct {
	armed         bool
	classified    bool
	startTimeMs   int64
	startCentroid tracker.Centroid
	startSpan     float32
}

// Detector is the single-threaded gesture state machine (spec §4.3).
type Detector struct {
	th           config.Thresholds
	two          twoFingerState
	threeStartMs *int64
	lastTwoFrame *tracker.FrameSummary
}

// NewDetector builds a Detector for the given thresholds.
func NewDetector(th config.Thresholds) *Detector {
	return &Detector{th: th}
}

// SetThresholds hot-swaps the thresholds used for subsequent frames,
// without resetting in-flight detector state (spec §3: profile epochs).
func (d *Detector) SetThresholds(th config.Thresholds) {
	d.th = th
}

// Update feeds one frame through the state machine and returns at most one
// gesture (spec §8 property 6).
func (d *Detector) Update(frame tracker.FrameSummary) (Gesture, bool) {
	a := frame.ActiveCount

	if a == 2 {
		if g, ok := d.onTwoFingerFrame(frame); ok {
			return g, true
		}
	} else if d.two.armed {
		g, ok := d.onTwoFingerExit()
		d.two = twoFingerState{}
		d.lastTwoFrame = nil
		if ok {
			return g, true
		}
	}

	return d.onThreeFingerFrame(frame)
}

func (d *Detector) onTwoFingerFrame(frame tracker.FrameSummary) (Gesture, bool) {
	if !d.two.armed {
		d.two.armed = true
		d.two.classified = false
		d.two.startTimeMs = frame.TimestampMs
		d.two.startCentroid = frame.Centroid
		d.two.startSpan = frame.Span
	}
	d.lastTwoFrame = &frame

	if d.two.classified {
		return 0, false
	}

	// Swipe classification runs first (swipe > pinch priority, spec §4.3).
	dt := frame.TimestampMs - d.two.startTimeMs
	if uint64(dt) <= d.th.SwipeMaxMs {
		dx := frame.Centroid.X - d.two.startCentroid.X
		dy := frame.Centroid.Y - d.two.startCentroid.Y
		ax, ay := absf(dx), absf(dy)

		if ax >= ay && ax >= d.th.SwipeMinDist {
			d.two.classified = true
			if dx > 0 {
				return TwoFingerSwipeRight, true
			}
			return TwoFingerSwipeLeft, true
		}
		if ay > ax && ay >= d.th.SwipeMinDist {
			d.two.classified = true
			if dy > 0 {
				return TwoFingerSwipeDown, true
			}
			return TwoFingerSwipeUp, true
		}
	}

	dspan := frame.Span - d.two.startSpan
	if absf(dspan) >= d.th.PinchStep {
		d.two.classified = true
		if dspan < 0 {
			return PinchScaleIn, true
		}
		return PinchScaleOut, true
	}

	return 0, false
}

func (d *Detector) onTwoFingerExit() (Gesture, bool) {
	if d.two.classified || d.lastTwoFrame == nil {
		return 0, false
	}
	last := d.lastTwoFrame
	if len(last.Slots) != 2 {
		return 0, false
	}
	for _, s := range last.Slots {
		if uint64(s.AgeMs) > d.th.TapMs || s.MovedNorm > d.th.MoveTol {
			return 0, false
		}
	}
	return TwoFingerTap, true
}

func (d *Detector) onThreeFingerFrame(frame tracker.FrameSummary) (Gesture, bool) {
	if frame.ActiveCount == 3 {
		if d.threeStartMs == nil {
			t := frame.TimestampMs
			d.threeStartMs = &t
		}
		return 0, false
	}

	if frame.ActiveCount == 0 && d.threeStartMs != nil {
		t0 := *d.threeStartMs
		d.threeStartMs = nil
		if uint64(frame.TimestampMs-t0) <= d.th.TapMs {
			return ThreeFingerTap, true
		}
	}
	return 0, false
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
