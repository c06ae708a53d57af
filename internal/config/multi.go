package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultLabel names the profile created by "config init". It cannot be
// removed and becomes active when the active profile is deleted.
const DefaultLabel = "Default"

const profileExt = ".yaml"

var ErrNoConfig = errors.New("no config selected")

// ConfigRoot resolves the per-user directory: %APPDATA% on Windows, then
// $XDG_CONFIG_HOME, then ~/.config.
func ConfigRoot() string {
	for _, env := range []string{"APPDATA", "XDG_CONFIG_HOME"} {
		if dir := os.Getenv(env); dir != "" {
			return filepath.Join(dir, "chaptrix")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "chaptrix")
}

func ConfigsDir() string { return filepath.Join(ConfigRoot(), "configs") }

func CurrentLabelFile() string { return filepath.Join(ConfigRoot(), "current_config") }

// ComicsFile is the tracked comics store shared by all profiles.
func ComicsFile() string { return filepath.Join(ConfigRoot(), "comics.yaml") }

func ConfigPathByLabel(label string) string {
	return filepath.Join(ConfigsDir(), label+profileExt)
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

func validLabel(label string) error {
	switch {
	case strings.TrimSpace(label) == "":
		return errors.New("label cannot be empty")
	case strings.ContainsAny(label, `/\`):
		return fmt.Errorf("label %q must not contain path separators", label)
	}
	return ensureDirs()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setActive(label string) error {
	return os.WriteFile(CurrentLabelFile(), []byte(label), 0644)
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(CurrentLabelFile())
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", ErrNoConfig
	case err != nil:
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil || label == "" {
		return "", ErrNoConfig
	}
	return ConfigPathByLabel(label), nil
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

// ListConfigs returns every stored profile sorted by label.
func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(ConfigsDir(), "*"+profileExt))
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()
	out := make([]ConfigInfo, 0, len(matches))
	for _, path := range matches {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		label := strings.TrimSuffix(filepath.Base(path), profileExt)
		out = append(out, ConfigInfo{Label: label, Path: path, Active: label == active})
	}

	slices.SortFunc(out, func(a, b ConfigInfo) int { return strings.Compare(a.Label, b.Label) })
	return out, nil
}

func SwitchConfig(label string) error {
	if err := validLabel(label); err != nil {
		return err
	}
	if !exists(ConfigPathByLabel(label)) {
		return fmt.Errorf("config %q does not exist", label)
	}
	return setActive(label)
}

// AddConfig imports an existing YAML file as a new profile.
func AddConfig(label, srcPath string) error {
	if err := validLabel(label); err != nil {
		return err
	}
	dst := ConfigPathByLabel(label)
	if exists(dst) {
		return fmt.Errorf("config %q already exists", label)
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", srcPath, err)
	}
	return os.WriteFile(dst, raw, 0644)
}

// CreateEmptyConfig writes a profile holding the default values.
func CreateEmptyConfig(label string) (string, error) {
	if err := validLabel(label); err != nil {
		return "", err
	}
	path := ConfigPathByLabel(label)
	if exists(path) {
		return "", fmt.Errorf("config %q already exists", label)
	}
	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

// RenameConfig moves a profile; the active marker follows it.
func RenameConfig(oldLabel, newLabel string) error {
	if err := validLabel(newLabel); err != nil {
		return err
	}
	from, to := ConfigPathByLabel(oldLabel), ConfigPathByLabel(newLabel)
	if !exists(from) {
		return fmt.Errorf("config %q does not exist", oldLabel)
	}
	if exists(to) {
		return fmt.Errorf("config %q already exists", newLabel)
	}
	if err := os.Rename(from, to); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return setActive(newLabel)
	}
	return nil
}

func RemoveConfig(label string) error {
	if err := validLabel(label); err != nil {
		return err
	}
	if label == DefaultLabel {
		return fmt.Errorf("cannot remove the %s config", DefaultLabel)
	}
	path := ConfigPathByLabel(label)
	if !exists(path) {
		return fmt.Errorf("config %q does not exist", label)
	}

	if active, _ := CurrentLabel(); active == label {
		if err := SwitchConfig(DefaultLabel); err != nil {
			return fmt.Errorf("switch to %s: %w", DefaultLabel, err)
		}
	}
	return os.Remove(path)
}

// InitDefaultConfig creates the Default profile and activates it. When it
// already exists it is only activated and os.ErrExist is returned.
func InitDefaultConfig() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path := ConfigPathByLabel(DefaultLabel)
	if exists(path) {
		_ = setActive(DefaultLabel)
		return path, os.ErrExist
	}
	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, setActive(DefaultLabel)
}
