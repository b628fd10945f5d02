// Package actions implements the virtual-input sink and the gesture-to-
// action dispatcher (spec §4.6, §6). The sink is a single combined uinput
// device named "Touchctl Virtual Input" exposing relative motion, wheel,
// mouse buttons, and the keyboard key tokens recognized by the binding
// grammar — generalized from the teacher repo's hand-rolled raw-ioctl
// device builder (see DESIGN.md for why github.com/bendahl/uinput, which
// only builds single-purpose devices, could not be used instead).
package actions

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"time"
	"unsafe"
)

const virtualDeviceName = "Touchctl Virtual Input"

const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0x00

	relX      = 0x00
	relY      = 0x01
	relHWheel = 0x06
	relWheel  = 0x08

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112

	uinputMaxNameSize = 80

	uiSetEvBit  = 0x40045564
	uiSetKeyBit = 0x40045565
	uiSetRelBit = 0x40045566
	uiDevCreate = 0x5501
)

// Key identifies a keyboard key usable in a chord (spec §4.6).
type Key uint16

// evdev keycodes for the tokens the binding grammar recognizes.
const (
	KeyLeftCtrl  Key = 29
	KeyLeftAlt   Key = 56
	KeyLeftShift Key = 42
	KeyLeftMeta  Key = 125
	KeyTab       Key = 15
	KeyMinus     Key = 12
	KeyEqual     Key = 13
)

var allChordKeys = []Key{KeyLeftCtrl, KeyLeftAlt, KeyLeftShift, KeyLeftMeta, KeyTab, KeyMinus, KeyEqual}

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [64]int32
	Absmin     [64]int32
	Absfuzz    [64]int32
	Absflat    [64]int32
}

func ioctl(fd uintptr, request uintptr, val uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, request, val)
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlInt(fd uintptr, request uintptr, val int) error {
	return ioctl(fd, request, uintptr(val))
}

// VirtualInput is the opened uinput device.
type VirtualInput struct {
	fd *os.File
}

// NewVirtualInput creates and registers the combined virtual device.
func NewVirtualInput() (*VirtualInput, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	fd := f.Fd()
	for _, ev := range []int{evKey, evRel, evSyn} {
		if err := ioctlInt(fd, uiSetEvBit, ev); err != nil {
			f.Close()
			return nil, fmt.Errorf("set evbit %d: %w", ev, err)
		}
	}
	for _, rel := range []int{relX, relY, relWheel, relHWheel} {
		if err := ioctlInt(fd, uiSetRelBit, rel); err != nil {
			f.Close()
			return nil, fmt.Errorf("set relbit %d: %w", rel, err)
		}
	}
	keyBits := []int{btnLeft, btnRight, btnMiddle}
	for _, k := range allChordKeys {
		keyBits = append(keyBits, int(k))
	}
	for _, key := range keyBits {
		if err := ioctlInt(fd, uiSetKeyBit, key); err != nil {
			f.Close()
			return nil, fmt.Errorf("set keybit %d: %w", key, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], virtualDeviceName)
	dev.ID.Bustype = 0x03
	dev.ID.Vendor = 0x1234
	dev.ID.Product = 0x5678
	dev.ID.Version = 1

	buf := (*[4096]byte)(unsafe.Pointer(&dev))[:unsafe.Sizeof(dev)]
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write dev info: %w", err)
	}
	if err := ioctl(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("dev create: %w", err)
	}

	time.Sleep(200 * time.Millisecond)
	return &VirtualInput{fd: f}, nil
}

func (v *VirtualInput) writeEvent(typ, code uint16, value int32) error {
	var tv syscall.Timeval
	syscall.Gettimeofday(&tv)
	return binary.Write(v.fd, binary.LittleEndian, inputEvent{Time: tv, Type: typ, Code: code, Value: value})
}

func (v *VirtualInput) sync() error {
	return v.writeEvent(evSyn, synReport, 0)
}

// Close releases the device.
func (v *VirtualInput) Close() error {
	return v.fd.Close()
}

// ClickMouse synthesizes a press-sync-release-sync pair for the named
// button ("left", "right", or "middle").
func (v *VirtualInput) ClickMouse(which string) error {
	var btn uint16
	switch which {
	case "left":
		btn = btnLeft
	case "right":
		btn = btnRight
	case "middle":
		btn = btnMiddle
	default:
		return fmt.Errorf("unknown mouse button: %s", which)
	}
	if err := v.writeEvent(evKey, btn, 1); err != nil {
		return err
	}
	if err := v.sync(); err != nil {
		return err
	}
	if err := v.writeEvent(evKey, btn, 0); err != nil {
		return err
	}
	return v.sync()
}

// ScrollVertical emits a single wheel-vertical event with the signed step
// count.
func (v *VirtualInput) ScrollVertical(steps int32) error {
	if err := v.writeEvent(evRel, relWheel, steps); err != nil {
		return err
	}
	return v.sync()
}

// KeyChord presses every key in order, syncs, then releases in reverse
// order and syncs again (spec §6: "A chord is a press-all-sync then
// release-all-in-reverse-sync").
func (v *VirtualInput) KeyChord(keys []Key) error {
	for _, k := range keys {
		if err := v.writeEvent(evKey, uint16(k), 1); err != nil {
			return err
		}
	}
	if err := v.sync(); err != nil {
		return err
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := v.writeEvent(evKey, uint16(keys[i]), 0); err != nil {
			return err
		}
	}
	return v.sync()
}
