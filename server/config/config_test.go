package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	c := &Config{}

	if c.ConcurrencyLimit() != DefaultBatchSize {
		t.Errorf("expected batch size %d, got %d", DefaultBatchSize, c.ConcurrencyLimit())
	}
	if c.BitrateKbps() != DefaultBitrate {
		t.Errorf("expected bitrate %d, got %d", DefaultBitrate, c.BitrateKbps())
	}
	if err := c.Persist(); err != nil {
		t.Errorf("persisting a config without a file should be a no-op, got %v", err)
	}
}

func TestUpdateSettingsPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	c := &Config{}
	c.Server.Port = 3033
	c.Paths.DownloadPath = "/old"
	c.Downloads.BatchSize = 5
	c.SetPath(path)

	if err := c.UpdateSettings(Settings{DownloadPath: "/music", BatchSize: 3}); err != nil {
		t.Fatal(err)
	}

	s := c.Settings()
	if s.DownloadPath != "/music" || s.BatchSize != 3 || c.DestinationDir() != "/music" || c.ConcurrencyLimit() != 3 {
		t.Errorf("unexpected settings %+v", s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var stored Config
	if err := yaml.Unmarshal(data, &stored); err != nil {
		t.Fatal(err)
	}
	if stored.Paths.DownloadPath != "/music" || stored.Downloads.BatchSize != 3 || stored.Server.Port != 3033 {
		t.Errorf("unexpected stored config:\n%s", data)
	}
}

func TestUpdateSettingsRejectsNegative(t *testing.T) {
	c := &Config{}
	if err := c.UpdateSettings(Settings{BatchSize: -1}); err == nil {
		t.Error("expected an error for a negative batch size")
	}
}
