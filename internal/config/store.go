package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Store manages the on-disk profile directory, the active-profile pointer,
// and the currently loaded profile (spec §6: filesystem layout).
type Store struct {
	ConfigDir    string
	ProfilesDir  string
	ActivePtr    string
	ActiveName   string
	Profile      Profile
	DetectedInfo []string // not set by this module; DoctorReport takes its device list as an argument
}

func configDir(home string) string {
	return filepath.Join(home, ".config", "touchctl")
}

// LoadOrInstallDefault ensures the profile directory, default profile, and
// active pointer exist, then loads the active profile. Mirrors the
// original `DaemonConfigState::load_or_install_default`.
func LoadOrInstallDefault(home string) (*Store, error) {
	cfgDir := configDir(home)
	profilesDir := filepath.Join(cfgDir, "profiles")
	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}

	defPath := filepath.Join(profilesDir, "default.toml")
	if _, err := os.Stat(defPath); os.IsNotExist(err) {
		if err := os.WriteFile(defPath, []byte(defaultProfileText), 0o644); err != nil {
			return nil, fmt.Errorf("install default profile: %w", err)
		}
	}

	activePtr := filepath.Join(cfgDir, "active")
	if _, err := os.Stat(activePtr); os.IsNotExist(err) {
		if err := os.WriteFile(activePtr, []byte("default"), 0o644); err != nil {
			return nil, fmt.Errorf("write active pointer: %w", err)
		}
	}

	activeName, err := readActivePointer(activePtr)
	if err != nil {
		return nil, err
	}

	s := &Store{
		ConfigDir:   cfgDir,
		ProfilesDir: profilesDir,
		ActivePtr:   activePtr,
	}
	profile, err := s.loadProfile(activeName)
	if err != nil {
		return nil, err
	}
	s.ActiveName = activeName
	s.Profile = *profile
	return s, nil
}

func readActivePointer(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read active pointer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) profilePath(name string) string {
	return filepath.Join(s.ProfilesDir, name+".toml")
}

func (s *Store) loadProfile(name string) (*Profile, error) {
	path := s.profilePath(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	var raw rawProfile
	if _, err := toml.NewDecoder(bufio.NewReader(f)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	bindings := make(map[string]string)
	if err := flattenBindings("", raw.Bindings, bindings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	profile := &Profile{Meta: raw.Meta, Thresholds: raw.Thresholds, Bindings: bindings}
	if err := Validate(profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}

// Reload re-reads the active profile from disk. On error the caller keeps
// the last-good Profile already held by the Store (spec §7: ConfigInvalid).
func (s *Store) Reload() error {
	p, err := s.loadProfile(s.ActiveName)
	if err != nil {
		return err
	}
	s.Profile = *p
	return nil
}

// SetActive switches the active profile, persists the pointer, and reloads.
// On failure the Store is left unchanged.
func (s *Store) SetActive(name string) error {
	path := s.profilePath(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("profile not found: %s", path)
	}
	p, err := s.loadProfile(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.ActivePtr, []byte(name), 0o644); err != nil {
		return fmt.Errorf("write active pointer: %w", err)
	}
	s.ActiveName = name
	s.Profile = *p
	return nil
}

// ListProfiles returns the sorted stems of every *.toml file in the
// profiles directory.
func (s *Store) ListProfiles() []string {
	entries, err := os.ReadDir(s.ProfilesDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}

// DoctorReport returns the diagnostic payload for the "doctor" control op
// (spec §6, supplemented from original_source/config.rs's doctor_report).
func (s *Store) DoctorReport(devices []string) map[string]any {
	_, uinputErr := os.Stat("/dev/uinput")
	return map[string]any{
		"uinput_present":    uinputErr == nil,
		"input_group_member": inInputGroup(),
		"profiles_dir":      s.ProfilesDir,
		"active_profile":    s.ActiveName,
		"devices":           devices,
		"hints": map[string]string{
			"udev_rule":             "/etc/udev/rules.d/80-uinput.rules",
			"add_user_to_input_group": "sudo usermod -aG input $USER && newgrp input",
		},
	}
}

func inInputGroup() bool {
	data, err := os.ReadFile("/etc/group")
	if err != nil {
		return false
	}
	user := currentUsername()
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "input:") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		for _, u := range strings.Split(fields[3], ",") {
			if u == user {
				return true
			}
		}
	}
	return false
}
