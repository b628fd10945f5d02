// Package tracker reconstructs per-finger multitouch state from the raw
// MT-slot protocol and emits a FrameSummary at each sync-report boundary.
package tracker

import "math"

// MaxSlots is the number of concurrently tracked MT slots.
const MaxSlots = 10

// SlotState is the per-slot touch state described in spec §3.
type SlotState struct {
	TrackingID int32 // negative means inactive
	Active     bool
	XNorm      float32
	YNorm      float32
	TFirstMs   int64
	TLastMs    int64
	MovedNorm  float32

	LastXNorm float32
	LastYNorm float32
	SeenX     bool
	SeenY     bool
}

// SlotSnapshot is the per-slot data carried in a FrameSummary.
type SlotSnapshot struct {
	TrackingID int32
	XNorm      float32
	YNorm      float32
	MovedNorm  float32
	AgeMs      int64
}

// Centroid is the arithmetic mean position of the active slots.
type Centroid struct {
	X float32
	Y float32
}

// FrameSummary is emitted once per SYN_REPORT.
type FrameSummary struct {
	TimestampMs int64
	ActiveCount int
	Centroid    Centroid
	Span        float32
	Slots       []SlotSnapshot
}

// AxisRange is the device-reported [Min, Max] for a raw absolute axis.
type AxisRange struct {
	Min int32
	Max int32
}

func (r AxisRange) normalize(raw int32) float32 {
	if r.Max == r.Min {
		return 0
	}
	v := float32(raw-r.Min) / float32(r.Max-r.Min)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clock returns monotonic milliseconds since daemon start.
type Clock func() int64

// Tracker consumes raw slot-protocol events and produces FrameSummary values.
// It is single-threaded; callers must serialize access (the pipeline owns it
// exclusively).
type Tracker struct {
	slots   [MaxSlots]SlotState
	curSlot int
	xRange  AxisRange
	yRange  AxisRange
	now     Clock
}

// New builds a Tracker normalizing X/Y against the given per-device axis
// ranges. Coordinate systems are not normalized across devices — each
// Tracker instance belongs to exactly one device.
func New(xRange, yRange AxisRange, now Clock) *Tracker {
	t := &Tracker{xRange: xRange, yRange: yRange, now: now}
	for i := range t.slots {
		t.slots[i].TrackingID = -1
	}
	return t
}

func clampSlot(i int32) int {
	if i < 0 {
		return 0
	}
	if int(i) > MaxSlots-1 {
		return MaxSlots - 1
	}
	return int(i)
}

// OnSlot handles an ABS_MT_SLOT event.
func (t *Tracker) OnSlot(i int32) {
	t.curSlot = clampSlot(i)
}

// OnTrackingID handles an ABS_MT_TRACKING_ID event addressed to the current
// slot.
func (t *Tracker) OnTrackingID(id int32) {
	s := &t.slots[t.curSlot]
	now := t.now()
	if id < 0 {
		s.TrackingID = id
		s.Active = false
		s.TLastMs = now
		return
	}
	s.TrackingID = id
	s.Active = true
	s.MovedNorm = 0
	s.SeenX = false
	s.SeenY = false
	s.TFirstMs = now
	s.TLastMs = now
}

// OnPosX handles an ABS_MT_POSITION_X event addressed to the current slot.
func (t *Tracker) OnPosX(raw int32) {
	s := &t.slots[t.curSlot]
	n := t.xRange.normalize(raw)
	if s.SeenX && s.SeenY {
		s.MovedNorm += abs32(n - s.LastXNorm)
		s.LastXNorm = n
	} else {
		s.LastXNorm = n
		s.SeenX = true
	}
	s.XNorm = n
	s.TLastMs = t.now()
}

// OnPosY handles an ABS_MT_POSITION_Y event addressed to the current slot.
func (t *Tracker) OnPosY(raw int32) {
	s := &t.slots[t.curSlot]
	n := t.yRange.normalize(raw)
	if s.SeenX && s.SeenY {
		s.MovedNorm += abs32(n - s.LastYNorm)
		s.LastYNorm = n
	} else {
		s.LastYNorm = n
		s.SeenY = true
	}
	s.YNorm = n
	s.TLastMs = t.now()
}

// OnSynReport computes and returns the FrameSummary for the current sync
// boundary, ordered by slot index.
func (t *Tracker) OnSynReport() FrameSummary {
	now := t.now()
	var snaps []SlotSnapshot
	var sumX, sumY float32

	for i := range t.slots {
		s := &t.slots[i]
		if !s.Active || s.TrackingID < 0 {
			continue
		}
		snaps = append(snaps, SlotSnapshot{
			TrackingID: s.TrackingID,
			XNorm:      s.XNorm,
			YNorm:      s.YNorm,
			MovedNorm:  s.MovedNorm,
			AgeMs:      now - s.TFirstMs,
		})
		sumX += s.XNorm
		sumY += s.YNorm
	}

	n := len(snaps)
	frame := FrameSummary{TimestampMs: now, ActiveCount: n, Slots: snaps}
	if n == 0 {
		frame.Centroid = Centroid{X: 0.5, Y: 0.5}
		frame.Span = 0
		return frame
	}

	cx := sumX / float32(n)
	cy := sumY / float32(n)
	frame.Centroid = Centroid{X: cx, Y: cy}

	var sumDist float32
	for _, s := range snaps {
		dx := float64(s.XNorm - cx)
		dy := float64(s.YNorm - cy)
		sumDist += float32(math.Sqrt(dx*dx + dy*dy))
	}
	frame.Span = sumDist / float32(n)
	return frame
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
