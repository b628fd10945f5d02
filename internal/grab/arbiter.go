// Package grab implements device-grab arbitration (spec §4.5): exclusive
// ownership is claimed only while two or more fingers are down, and the
// transition is always applied after a tick's event-processing pass, never
// during it.
package grab

// Grabber is anything that can claim or release exclusive ownership.
type Grabber interface {
	Grab() error
	Release() error
}

// Arbiter holds the current grab state and decides transitions.
type Arbiter struct {
	grabbed bool
}

// Grabbed reports whether the daemon currently holds an exclusive grab.
func (a *Arbiter) Grabbed() bool {
	return a.grabbed
}

// Apply evaluates the desired grab state for the tick just completed and,
// if it differs from the current state, performs exactly one transition
// across every device. wantGrab is derived from the most recent frame's
// active_count (>= 2 means want grab).
func (a *Arbiter) Apply(wantGrab bool, devices []Grabber) {
	if wantGrab && !a.grabbed {
		for _, d := range devices {
			_ = d.Grab()
		}
		a.grabbed = true
		return
	}
	if !wantGrab && a.grabbed {
		for _, d := range devices {
			_ = d.Release()
		}
		a.grabbed = false
	}
}

// ReleaseAll unconditionally releases every device and clears grabbed
// state, used on cooperative shutdown regardless of the grab state at the
// moment shutdown was requested (spec §5).
func (a *Arbiter) ReleaseAll(devices []Grabber) {
	for _, d := range devices {
		_ = d.Release()
	}
	a.grabbed = false
}
