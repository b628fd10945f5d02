// Package rawinput discovers kernel multitouch input devices and exposes a
// thin, fan-in-friendly wrapper around them.
package rawinput

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/jadevit/touchctl/internal/tracker"
)

// Event classes and MT slot-protocol codes, re-exported from the evdev
// package so the rest of the daemon never imports it directly.
const (
	EvAbs = evdev.EV_ABS
	EvSyn = evdev.EV_SYN
	EvKey = evdev.EV_KEY

	AbsMTSlot       = evdev.ABS_MT_SLOT
	AbsMTTrackingID = evdev.ABS_MT_TRACKING_ID
	AbsMTPositionX  = evdev.ABS_MT_POSITION_X
	AbsMTPositionY  = evdev.ABS_MT_POSITION_Y

	SynReport = evdev.SYN_REPORT
)

// DeviceInfo identifies a qualifying multitouch device.
type DeviceInfo struct {
	Path string
	Name string
}

// RawEvent mirrors the fields of evdev.InputEvent the tracker cares about.
type RawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Discover enumerates /dev/input/event* and returns the ones that report
// the ABSOLUTE event class and all three MT slot-protocol axes. Entries
// that fail to open or don't qualify are silently skipped.
func Discover() []DeviceInfo {
	const inputDir = "/dev/input"

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil
	}

	var out []DeviceInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join(inputDir, e.Name())

		dev, err := evdev.Open(path)
		if err != nil {
			continue
		}
		if isMultitouch(dev) {
			out = append(out, DeviceInfo{Path: path, Name: dev.Name})
		}
		dev.File.Close()
	}
	return out
}

func isMultitouch(dev *evdev.InputDevice) bool {
	hasAbs := false
	hasSlot, hasX, hasY := false, false, false

	for capType, caps := range dev.Capabilities {
		if capType.Type != evdev.EV_ABS {
			continue
		}
		hasAbs = true
		for _, c := range caps {
			switch c.Code {
			case evdev.ABS_MT_SLOT:
				hasSlot = true
			case evdev.ABS_MT_POSITION_X:
				hasX = true
			case evdev.ABS_MT_POSITION_Y:
				hasY = true
			}
		}
	}
	return hasAbs && hasSlot && hasX && hasY
}

// Device is an opened multitouch input device.
type Device struct {
	Info    DeviceInfo
	dev     *evdev.InputDevice
	grabbed bool
}

// Open opens the device at info.Path for reading.
func Open(info DeviceInfo) (*Device, error) {
	dev, err := evdev.Open(info.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Path, err)
	}
	return &Device{Info: info, dev: dev}, nil
}

// Read drains whatever events are currently queued for this device. The
// underlying evdev read blocks if nothing is pending, so callers that need
// non-blocking semantics must call Read from its own goroutine (see
// internal/pipeline).
func (d *Device) Read() ([]RawEvent, error) {
	events, err := d.dev.Read()
	if err != nil {
		return nil, err
	}
	out := make([]RawEvent, len(events))
	for i, e := range events {
		out[i] = RawEvent{Type: e.Type, Code: e.Code, Value: e.Value}
	}
	return out, nil
}

// Grab requests exclusive ownership of the device.
func (d *Device) Grab() error {
	if d.grabbed {
		return nil
	}
	if err := d.dev.Grab(); err != nil {
		return err
	}
	d.grabbed = true
	return nil
}

// Release relinquishes exclusive ownership, if held.
func (d *Device) Release() error {
	if !d.grabbed {
		return nil
	}
	if err := d.dev.Release(); err != nil {
		return err
	}
	d.grabbed = false
	return nil
}

// Grabbed reports whether this device currently holds an exclusive grab.
func (d *Device) Grabbed() bool {
	return d.grabbed
}

// Close releases the grab (if any) and closes the underlying file.
func (d *Device) Close() error {
	_ = d.Release()
	return d.dev.File.Close()
}

// inputAbsInfo mirrors struct input_absinfo from linux/input.h.
type inputAbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

const (
	iocRead    = 2
	iocTypeBits = 8
	iocNrBits   = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	absEventType = 'E'
)

func eviocgabs(abs uint16) uintptr {
	size := uintptr(unsafe.Sizeof(inputAbsInfo{}))
	return (uintptr(iocRead) << iocDirShift) |
		(size << iocSizeShift) |
		(uintptr(absEventType) << iocTypeShift) |
		(uintptr(0x40+abs) << iocNrShift)
}

// AxisRange reads the device-reported [minimum, maximum] for an absolute
// axis via EVIOCGABS, used to build the per-device tracker.AxisRange for
// ABS_MT_POSITION_X/Y normalization.
func (d *Device) AxisRange(abs uint16) (tracker.AxisRange, error) {
	var info inputAbsInfo
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, d.dev.File.Fd(), eviocgabs(abs), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return tracker.AxisRange{}, fmt.Errorf("EVIOCGABS(%d): %w", abs, errno)
	}
	return tracker.AxisRange{Min: info.Minimum, Max: info.Maximum}, nil
}
