package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrInstallDefaultInstallsAndLoads(t *testing.T) {
	home := t.TempDir()

	s, err := LoadOrInstallDefault(home)
	require.NoError(t, err)
	assert.Equal(t, "default", s.ActiveName)
	assert.Equal(t, uint64(250), s.Profile.Thresholds.TapMs)
	assert.Equal(t, "mouse:middle", s.Profile.Bindings["two_finger.tap"])
	assert.Equal(t, "", s.Profile.Bindings["two_finger.swipe_left"])

	if _, err := os.Stat(filepath.Join(home, ".config", "touchctl", "profiles", "default.toml")); err != nil {
		t.Fatalf("expected default.toml to be installed: %v", err)
	}
}

func TestFlattenBindingsNestsDottedKeys(t *testing.T) {
	raw := map[string]interface{}{
		"two_finger": map[string]interface{}{
			"tap": "mouse:middle",
		},
		"pinch": map[string]interface{}{
			"scale_in": "key:CTRL+MINUS",
		},
	}
	out := make(map[string]string)
	require.NoError(t, flattenBindings("", raw, out))
	assert.Equal(t, "mouse:middle", out["two_finger.tap"])
	assert.Equal(t, "key:CTRL+MINUS", out["pinch.scale_in"])
}

func TestFlattenBindingsRejectsNonStringLeaf(t *testing.T) {
	raw := map[string]interface{}{
		"two_finger": map[string]interface{}{
			"tap": 42,
		},
	}
	out := make(map[string]string)
	assert.Error(t, flattenBindings("", raw, out))
}

func TestValidateAllowsEmptyAndToggleBindings(t *testing.T) {
	p := &Profile{
		Thresholds: Thresholds{TapMs: 1, HoldMs: 1, MoveTol: 0.5},
		Bindings:   map[string]string{"a": "", "b": "toggle"},
	}
	assert.NoError(t, Validate(p))
}

func TestValidateRejectsUnknownActionPrefix(t *testing.T) {
	p := &Profile{
		Thresholds: Thresholds{TapMs: 1, HoldMs: 1, MoveTol: 0.5},
		Bindings:   map[string]string{"a": "bogus:action"},
	}
	assert.Error(t, Validate(p))
}

func TestValidateRejectsCmdWithoutAllowCommands(t *testing.T) {
	p := &Profile{
		Meta:       Meta{AllowCommands: false},
		Thresholds: Thresholds{TapMs: 1, HoldMs: 1, MoveTol: 0.5},
		Bindings:   map[string]string{"a": "cmd:notify-send hi"},
	}
	assert.Error(t, Validate(p))

	p.Meta.AllowCommands = true
	assert.NoError(t, Validate(p))
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	assert.Error(t, Validate(&Profile{Thresholds: Thresholds{TapMs: 0, HoldMs: 1, MoveTol: 0.5}}))
	assert.Error(t, Validate(&Profile{Thresholds: Thresholds{TapMs: 1, HoldMs: 0, MoveTol: 0.5}}))
	assert.Error(t, Validate(&Profile{Thresholds: Thresholds{TapMs: 1, HoldMs: 1, MoveTol: 0}}))
	assert.Error(t, Validate(&Profile{Thresholds: Thresholds{TapMs: 1, HoldMs: 1, MoveTol: 1}}))
}

func TestSetActiveSwitchesAndPersistsPointer(t *testing.T) {
	home := t.TempDir()
	s, err := LoadOrInstallDefault(home)
	require.NoError(t, err)

	workProfile := `
[meta]
name = "work"
allow_commands = false

[thresholds]
tap_ms = 200
hold_ms = 500
move_tol = 0.03
swipe_min_dist = 0.1
swipe_max_ms = 350
pinch_sensitivity = 1.0
pinch_step = 0.05
smooth_ema = 0.3

[bindings]
two_finger.tap = "mouse:right"
`
	require.NoError(t, os.WriteFile(filepath.Join(s.ProfilesDir, "work.toml"), []byte(workProfile), 0o644))

	require.NoError(t, s.SetActive("work"))
	assert.Equal(t, "work", s.ActiveName)
	assert.Equal(t, "mouse:right", s.Profile.Bindings["two_finger.tap"])

	persisted, err := os.ReadFile(s.ActivePtr)
	require.NoError(t, err)
	assert.Equal(t, "work", string(persisted))
}

func TestSetActiveLeavesStoreUnchangedOnMissingProfile(t *testing.T) {
	home := t.TempDir()
	s, err := LoadOrInstallDefault(home)
	require.NoError(t, err)

	before := s.ActiveName
	err = s.SetActive("does-not-exist")
	assert.Error(t, err)
	assert.Equal(t, before, s.ActiveName)
}

func TestReloadKeepsLastGoodProfileOnInvalidEdit(t *testing.T) {
	home := t.TempDir()
	s, err := LoadOrInstallDefault(home)
	require.NoError(t, err)

	goodTapMs := s.Profile.Thresholds.TapMs
	defPath := filepath.Join(s.ProfilesDir, "default.toml")
	require.NoError(t, os.WriteFile(defPath, []byte("[meta]\nname=\"default\"\n[thresholds]\ntap_ms=0\n"), 0o644))

	err = s.Reload()
	assert.Error(t, err)
	assert.Equal(t, goodTapMs, s.Profile.Thresholds.TapMs, "store must keep the last-good profile on reload failure")
}

func TestListProfilesIsSorted(t *testing.T) {
	home := t.TempDir()
	s, err := LoadOrInstallDefault(home)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.ProfilesDir, "zzz.toml"), []byte("[meta]\nname=\"zzz\"\n[thresholds]\ntap_ms=1\nhold_ms=1\nmove_tol=0.1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.ProfilesDir, "aaa.toml"), []byte("[meta]\nname=\"aaa\"\n[thresholds]\ntap_ms=1\nhold_ms=1\nmove_tol=0.1\n"), 0o644))

	names := s.ListProfiles()
	assert.Equal(t, []string{"aaa", "default", "zzz"}, names)
}
