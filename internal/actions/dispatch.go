package actions

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jadevit/touchctl/internal/gestures"
)

// Sink is the virtual-input surface a Dispatcher drives. VirtualInput
// satisfies it; tests substitute a recording fake.
type Sink interface {
	ClickMouse(which string) error
	ScrollVertical(steps int32) error
	KeyChord(keys []Key) error
}

// Dispatcher resolves a recognized Gesture to its bound action string and
// executes the action grammar (spec §4.6):
//
//	""                     no-op
//	"toggle"               flips the daemon's enabled flag
//	"mouse:<btn>"          left | right | middle
//	"scroll:<axis>[@steps]" vertical (others reserved), steps defaults to 1
//	"key:<TOK>[+TOK...]"   chord of recognized key tokens
//	"cmd:<shell>"          runs via sh -c, only when the active profile
//	                       allows commands
type Dispatcher struct {
	sink    Sink
	enabled *bool
	log     *logrus.Logger
}

// NewDispatcher builds a Dispatcher. enabled is the daemon's shared
// enabled flag, flipped by the "toggle" action.
func NewDispatcher(sink Sink, enabled *bool, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, enabled: enabled, log: log}
}

// BindingKey returns the dotted binding-table key for a gesture.
func BindingKey(g gestures.Gesture) string {
	return g.String()
}

// Dispatch looks up the action bound to g and, when it isn't a no-op,
// parses and executes it. allowCommands gates "cmd:" actions and must
// reflect the currently active profile's meta.allow_commands.
func (d *Dispatcher) Dispatch(g gestures.Gesture, bindings map[string]string, allowCommands bool) error {
	action, found := bindings[BindingKey(g)]
	if !found {
		return nil
	}
	return d.run(action, allowCommands)
}

func (d *Dispatcher) run(action string, allowCommands bool) error {
	action = strings.TrimSpace(action)
	switch {
	case action == "", action == "toggle":
		if action == "toggle" && d.enabled != nil {
			*d.enabled = !*d.enabled
		}
		return nil

	case strings.HasPrefix(action, "mouse:"):
		return d.sink.ClickMouse(strings.TrimPrefix(action, "mouse:"))

	case strings.HasPrefix(action, "scroll:"):
		return d.runScroll(strings.TrimPrefix(action, "scroll:"))

	case strings.HasPrefix(action, "key:"):
		return d.runKeyChord(strings.TrimPrefix(action, "key:"))

	case strings.HasPrefix(action, "cmd:"):
		if !allowCommands {
			return fmt.Errorf("cmd action blocked: active profile does not allow commands")
		}
		return d.runCmd(strings.TrimPrefix(action, "cmd:"))

	default:
		return fmt.Errorf("unrecognized action: %q", action)
	}
}

// runScroll parses "<axis>[@<steps>]" (spec §4.6). Only the "vertical"
// axis is wired; others are a reserved extension point.
func (d *Dispatcher) runScroll(spec string) error {
	axis := spec
	steps := int32(1)
	if i := strings.IndexByte(spec, '@'); i >= 0 {
		axis = spec[:i]
		n, err := strconv.Atoi(spec[i+1:])
		if err != nil {
			return fmt.Errorf("bad scroll step count %q: %w", spec[i+1:], err)
		}
		steps = int32(n)
	}
	switch axis {
	case "vertical":
		return d.sink.ScrollVertical(steps)
	default:
		return fmt.Errorf("unsupported scroll axis: %q", axis)
	}
}

func (d *Dispatcher) runKeyChord(spec string) error {
	tokens := strings.Split(spec, "+")
	keys := make([]Key, 0, len(tokens))
	for _, tok := range tokens {
		k, err := parseKeyToken(tok)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}
	return d.sink.KeyChord(keys)
}

func (d *Dispatcher) runCmd(shell string) error {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return fmt.Errorf("empty cmd action")
	}
	cmd := exec.Command("sh", "-c", shell)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start cmd %q: %w", shell, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil && d.log != nil {
			d.log.Warnf("cmd action %q exited with error: %v", shell, err)
		}
	}()
	return nil
}

// ParseKeyToken resolves one binding-grammar key token (e.g. "CTRL",
// "SUPER", "-") to its evdev keycode.
func ParseKeyToken(tok string) (Key, error) {
	return parseKeyToken(tok)
}

func parseKeyToken(tok string) (Key, error) {
	switch strings.ToUpper(strings.TrimSpace(tok)) {
	case "CTRL", "CONTROL":
		return KeyLeftCtrl, nil
	case "ALT":
		return KeyLeftAlt, nil
	case "SHIFT":
		return KeyLeftShift, nil
	case "SUPER", "META", "WIN":
		return KeyLeftMeta, nil
	case "TAB":
		return KeyTab, nil
	case "MINUS", "-":
		return KeyMinus, nil
	case "EQUAL", "=":
		return KeyEqual, nil
	default:
		return 0, fmt.Errorf("unrecognized key token: %q", tok)
	}
}
