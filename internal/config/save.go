package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFilePerm is the mode for written config files.
const configFilePerm = 0o644

// SaveProfile writes the given settings as a named profile into the config
// file at path, creating the file when absent. Other profiles and top-level
// settings in the file are preserved.
func SaveProfile(path, name string, cfg *Config) error {
	if path == "" {
		path = configName + "." + configType
	}

	document := map[string]any{}

	raw, readErr := os.ReadFile(path)
	if readErr == nil {
		if err := yaml.Unmarshal(raw, &document); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(readErr) {
		return fmt.Errorf("read config file %s: %w", path, readErr)
	}

	// Round-trip through yaml so the stored profile uses file key names,
	// not Go field names.
	encoded, marshalErr := yaml.Marshal(cfg)
	if marshalErr != nil {
		return fmt.Errorf("encode profile %q: %w", name, marshalErr)
	}

	var section map[string]any
	if err := yaml.Unmarshal(encoded, &section); err != nil {
		return fmt.Errorf("encode profile %q: %w", name, err)
	}

	profiles, ok := document[profilesKey].(map[string]any)
	if !ok {
		profiles = map[string]any{}
	}

	profiles[name] = section
	document[profilesKey] = profiles

	out, marshalErr := yaml.Marshal(document)
	if marshalErr != nil {
		return fmt.Errorf("encode config file: %w", marshalErr)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	writeErr := os.WriteFile(path, out, configFilePerm)
	if writeErr != nil {
		return fmt.Errorf("write config file %s: %w", path, writeErr)
	}

	return nil
}
