package persistence

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveConfig writes any JSON-serializable config value atomically,
// following the same temp+rename pattern as Save. The listener persists
// its config separately from its queue snapshot so an operator can inspect
// or hand-edit config between restarts without wading through queued
// events (spec.md §6.3).
func SaveConfig(path string, cfg interface{}) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write config temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}

// LoadConfig reads a config file previously written by SaveConfig into
// dst. A missing file is not an error; dst is left unmodified and the
// caller's zero-value defaults apply.
func LoadConfig(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
