package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Settings keys persisted between runs.
const SettingDownloadDir = "download_dir"

// LoadSetting reads one key from the settings file, returning def when the
// file is missing, unreadable, or the key is absent.
func (c Config) LoadSetting(key, def string) string {
	data, err := os.ReadFile(c.SettingsPath)
	if err != nil {
		return def
	}
	settings := map[string]string{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return def
	}
	if value, ok := settings[key]; ok {
		return value
	}
	return def
}

// SaveSetting writes one key to the settings file, preserving other keys.
func (c Config) SaveSetting(key, value string) error {
	settings := map[string]string{}
	if data, err := os.ReadFile(c.SettingsPath); err == nil {
		_ = yaml.Unmarshal(data, &settings)
	}
	settings[key] = value
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath, data, 0644)
}
