package config

import "testing"

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("PHOTOCORE_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("PHOTOCORE_HOME", "/custom/photocore")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/photocore" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/photocore")
		}
	})

	t.Run("falls back to home directory defaults", func(t *testing.T) {
		t.Setenv("PHOTOCORE_CONFIG_PATH", "")
		t.Setenv("PHOTOCORE_HOME", "")
		t.Setenv("HOME", "/home/tester")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["config_path"] != "/home/tester/.config/photocore.toml" {
			t.Errorf("config_path = %q", defaults["config_path"])
		}
		if defaults["base_dir"] != "/home/tester/.local/share/photocore" {
			t.Errorf("base_dir = %q", defaults["base_dir"])
		}
	})
}
