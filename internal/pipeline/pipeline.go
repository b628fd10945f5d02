// Package pipeline wires device discovery, the finger tracker, the
// gesture detector, the scroll integrator, grab arbitration, and the
// action dispatcher into the single-threaded per-tick loop described in
// spec §4.7.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jadevit/touchctl/internal/actions"
	"github.com/jadevit/touchctl/internal/config"
	"github.com/jadevit/touchctl/internal/control"
	"github.com/jadevit/touchctl/internal/gestures"
	"github.com/jadevit/touchctl/internal/grab"
	"github.com/jadevit/touchctl/internal/rawinput"
	"github.com/jadevit/touchctl/internal/scroll"
	"github.com/jadevit/touchctl/internal/tracker"
)

const (
	idleTick  = 4 * time.Millisecond
	emptyTick = time.Second
)

// deviceUnit bundles one opened device with the per-device pipeline state
// that feeds off it. Each device gets its own tracker, gesture detector,
// and scroll integrator — coordinate systems and gesture state are never
// shared across devices (spec §3).
type deviceUnit struct {
	dev       *rawinput.Device
	tr        *tracker.Tracker
	det       *gestures.Detector
	integ     scroll.Integrator
	prevFrame tracker.FrameSummary
	havePrev  bool

	events chan rawinput.RawEvent
	errs   chan error
}

// Loop is the daemon's single owner of pipeline state. Everything that
// mutates it — frame processing, control-channel commands, config-file
// reloads — runs on the one goroutine executing Run, so no locking is
// needed around the profile or device set.
type Loop struct {
	store      *config.Store
	server     *control.Server
	watcher    *config.Watcher
	sink       actions.Sink
	dispatcher *actions.Dispatcher
	log        *logrus.Logger

	devices      []*deviceUnit
	arbiter      grab.Arbiter
	wantGrab     bool
	enabled      bool
	shuttingDown bool
	socketPath   string
	started      time.Time
}

// NewLoop discovers multitouch devices, opens each one, and builds the
// per-device pipeline state from the store's active profile.
func NewLoop(store *config.Store, server *control.Server, watcher *config.Watcher, sink actions.Sink, socketPath string, log *logrus.Logger) *Loop {
	l := &Loop{
		store:      store,
		server:     server,
		watcher:    watcher,
		sink:       sink,
		log:        log,
		enabled:    true,
		socketPath: socketPath,
		started:    time.Now(),
	}
	l.dispatcher = actions.NewDispatcher(sink, &l.enabled, log)

	infos := rawinput.Discover()
	if log != nil {
		log.Infof("discovered %d multitouch device(s)", len(infos))
	}
	for _, info := range infos {
		du, err := l.openDevice(info)
		if err != nil {
			if log != nil {
				log.Warnf("skip device %s: %v", info.Path, err)
			}
			continue
		}
		l.devices = append(l.devices, du)
	}
	return l
}

func (l *Loop) openDevice(info rawinput.DeviceInfo) (*deviceUnit, error) {
	dev, err := rawinput.Open(info)
	if err != nil {
		return nil, err
	}
	xRange, err := dev.AxisRange(rawinput.AbsMTPositionX)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("read x axis range: %w", err)
	}
	yRange, err := dev.AxisRange(rawinput.AbsMTPositionY)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("read y axis range: %w", err)
	}

	clock := func() int64 { return time.Since(l.started).Milliseconds() }
	du := &deviceUnit{
		dev:    dev,
		tr:     tracker.New(xRange, yRange, clock),
		det:    gestures.NewDetector(l.store.Profile.Thresholds),
		events: make(chan rawinput.RawEvent, 256),
		errs:   make(chan error, 1),
	}
	go readerLoop(dev, du.events, du.errs)
	return du, nil
}

func readerLoop(dev *rawinput.Device, out chan<- rawinput.RawEvent, errs chan<- error) {
	for {
		events, err := dev.Read()
		if err != nil {
			errs <- err
			close(out)
			return
		}
		for _, e := range events {
			out <- e
		}
	}
}

// Run executes the per-tick loop until ctx is canceled or a "shutdown"
// control command is received.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		default:
		}

		processed := l.drainDevices()
		l.drainCommands()
		l.drainWatcher()

		if l.shuttingDown {
			l.shutdown()
			return
		}

		switch {
		case len(l.devices) == 0:
			time.Sleep(emptyTick)
		case !processed:
			time.Sleep(idleTick)
		}
	}
}

// drainDevices pulls whatever events are queued for every device and
// applies at most one grab transition for the tick (spec §4.5: never mid-
// iteration). It returns whether any event was processed.
func (l *Loop) drainDevices() bool {
	processed := false

	for idx, du := range l.devices {
	drain:
		for {
			select {
			case err, open := <-du.errs:
				if err != nil && l.log != nil {
					l.log.Warnf("device %s read error: %v", du.dev.Info.Path, err)
				}
				_ = open
			default:
			}

			select {
			case e, ok := <-du.events:
				if !ok {
					break drain
				}
				l.processEvent(idx, e)
				processed = true
			default:
				break drain
			}
		}
	}

	grabbers := make([]grab.Grabber, len(l.devices))
	for i, du := range l.devices {
		grabbers[i] = du.dev
	}
	l.arbiter.Apply(l.wantGrab, grabbers)

	return processed
}

func (l *Loop) processEvent(idx int, e rawinput.RawEvent) {
	du := l.devices[idx]
	switch e.Type {
	case rawinput.EvAbs:
		switch e.Code {
		case rawinput.AbsMTSlot:
			du.tr.OnSlot(e.Value)
		case rawinput.AbsMTTrackingID:
			du.tr.OnTrackingID(e.Value)
		case rawinput.AbsMTPositionX:
			du.tr.OnPosX(e.Value)
		case rawinput.AbsMTPositionY:
			du.tr.OnPosY(e.Value)
		}
	case rawinput.EvSyn:
		if e.Code == rawinput.SynReport {
			l.onFrame(idx, du.tr.OnSynReport())
		}
	}
}

func (l *Loop) onFrame(idx int, frame tracker.FrameSummary) {
	du := l.devices[idx]
	l.wantGrab = frame.ActiveCount >= 2

	if !l.enabled {
		du.prevFrame = frame
		du.havePrev = true
		return
	}

	th := l.store.Profile.Thresholds
	if steps, ok := du.integ.Update(frame, du.prevFrame, du.havePrev, th.PinchStep); ok {
		if err := l.sink.ScrollVertical(int32(steps)); err != nil && l.log != nil {
			l.log.Warnf("scroll emit: %v", err)
		}
	}

	if g, ok := du.det.Update(frame); ok {
		if err := l.dispatcher.Dispatch(g, l.store.Profile.Bindings, l.store.Profile.Meta.AllowCommands); err != nil && l.log != nil {
			l.log.Warnf("dispatch %s: %v", g, err)
		}
	}

	du.prevFrame = frame
	du.havePrev = true
}

// drainCommands services every control-channel request queued this tick.
func (l *Loop) drainCommands() {
	if l.server == nil {
		return
	}
	for {
		select {
		case cmd := <-l.server.Commands:
			l.handleCommand(cmd)
		default:
			return
		}
	}
}

func (l *Loop) handleCommand(cmd control.Command) {
	switch cmd.Req.Op {
	case control.OpStatus:
		cmd.Reply <- control.Response{OK: true, Data: map[string]any{
			"enabled":        l.enabled,
			"active_profile": l.store.ActiveName,
			"socket":         l.socketPath,
			"devices":        l.deviceNames(),
		}}

	case control.OpReload:
		if err := l.store.Reload(); err != nil {
			cmd.Reply <- control.Response{OK: false, Error: err.Error()}
			return
		}
		l.applyProfile()
		cmd.Reply <- control.Response{OK: true, Data: map[string]any{"active_profile": l.store.ActiveName}}

	case control.OpUse:
		if err := l.store.SetActive(cmd.Req.Name); err != nil {
			cmd.Reply <- control.Response{OK: false, Error: err.Error()}
			return
		}
		l.applyProfile()
		cmd.Reply <- control.Response{OK: true, Data: map[string]any{"active_profile": l.store.ActiveName}}

	case control.OpList:
		cmd.Reply <- control.Response{OK: true, Data: map[string]any{
			"profiles": l.store.ListProfiles(),
			"active":   l.store.ActiveName,
		}}

	case control.OpDoctor:
		cmd.Reply <- control.Response{OK: true, Data: l.store.DoctorReport(l.deviceNames())}

	case control.OpShutdown:
		l.shuttingDown = true
		cmd.Reply <- control.Response{OK: true, Data: "shutting down"}

	default:
		cmd.Reply <- control.Response{OK: false, Error: fmt.Sprintf("unknown op: %s", cmd.Req.Op)}
	}
}

// drainWatcher applies at most one reload per tick triggered by the
// filesystem watcher, through the same Reload path the control channel
// uses (spec §7: last-good-on-error).
func (l *Loop) drainWatcher() {
	if l.watcher == nil {
		return
	}
	select {
	case <-l.watcher.Changed:
		if err := l.store.Reload(); err != nil {
			if l.log != nil {
				l.log.Warnf("config reload failed, keeping last-good profile: %v", err)
			}
			return
		}
		l.applyProfile()
	default:
	}
}

func (l *Loop) applyProfile() {
	th := l.store.Profile.Thresholds
	for _, du := range l.devices {
		du.det.SetThresholds(th)
	}
}

func (l *Loop) deviceNames() []string {
	names := make([]string, len(l.devices))
	for i, du := range l.devices {
		names[i] = du.dev.Info.Name
	}
	return names
}

func (l *Loop) shutdown() {
	grabbers := make([]grab.Grabber, len(l.devices))
	for i, du := range l.devices {
		grabbers[i] = du.dev
	}
	l.arbiter.ReleaseAll(grabbers)

	for _, du := range l.devices {
		_ = du.dev.Close()
	}
	if l.watcher != nil {
		_ = l.watcher.Close()
	}
	if l.server != nil {
		_ = l.server.Close()
	}
}
