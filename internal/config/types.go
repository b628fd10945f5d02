// Package config implements the profile schema consumed by the gesture
// pipeline: thresholds, bindings, and the on-disk profile store.
package config

import "fmt"

// Meta is the profile's [meta] section.
type Meta struct {
	Name          string `toml:"name"`
	AllowCommands bool   `toml:"allow_commands"`
}

// Thresholds are the immutable-per-epoch tuning values consumed by the
// gesture detector and scroll integrator (spec §3).
type Thresholds struct {
	TapMs            uint64  `toml:"tap_ms"`
	HoldMs           uint64  `toml:"hold_ms"`
	MoveTol          float32 `toml:"move_tol"`
	SwipeMinDist     float32 `toml:"swipe_min_dist"`
	SwipeMaxMs       uint64  `toml:"swipe_max_ms"`
	PinchSensitivity float32 `toml:"pinch_sensitivity"`
	PinchStep        float32 `toml:"pinch_step"`
	SmoothEma        float32 `toml:"smooth_ema"`
}

// Profile is a fully parsed and validated profile.
type Profile struct {
	Meta       Meta
	Thresholds Thresholds
	Bindings   map[string]string
}

// rawProfile mirrors the on-disk TOML shape before bindings are flattened.
type rawProfile struct {
	Meta       Meta                   `toml:"meta"`
	Thresholds Thresholds             `toml:"thresholds"`
	Bindings   map[string]interface{} `toml:"bindings"`
}

func flattenBindings(prefix string, table map[string]interface{}, out map[string]string) error {
	for k, v := range table {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]interface{}:
			if err := flattenBindings(key, val, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("binding %q value must be a string, got %T", key, v)
		}
	}
	return nil
}

// legalActionPrefixes are the recognized binding-action grammars (spec §4.6).
var legalActionPrefixes = []string{"mouse:", "scroll:", "key:", "cmd:"}

// Validate checks a profile against the rules in spec §6.
func Validate(p *Profile) error {
	if p.Thresholds.TapMs == 0 {
		return fmt.Errorf("thresholds.tap_ms must be > 0")
	}
	if p.Thresholds.HoldMs == 0 {
		return fmt.Errorf("thresholds.hold_ms must be > 0")
	}
	if p.Thresholds.MoveTol <= 0 || p.Thresholds.MoveTol >= 1 {
		return fmt.Errorf("thresholds.move_tol must be in (0,1), got %v", p.Thresholds.MoveTol)
	}

	for k, v := range p.Bindings {
		if k == "" {
			return fmt.Errorf("empty binding key")
		}
		if v == "" || v == "toggle" {
			continue
		}
		ok := false
		for _, prefix := range legalActionPrefixes {
			if len(v) >= len(prefix) && v[:len(prefix)] == prefix {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("binding %q has invalid action %q", k, v)
		}
		if len(v) >= 4 && v[:4] == "cmd:" && !p.Meta.AllowCommands {
			return fmt.Errorf("binding %q uses cmd: but allow_commands=false", k)
		}
	}
	return nil
}
