package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EditorConfig struct {
	Version int `yaml:"version"`
	Editor  struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"editor"`
	Network struct {
		APIPort int    `yaml:"api_port"`
		MQTTURL string `yaml:"mqtt_url"`
	} `yaml:"network"`
	Storage struct {
		QuestsDir    string `yaml:"quests_dir"`
		ReferenceDir string `yaml:"reference_dir"`
		MetadataDB   string `yaml:"metadata_db"`
		AuditTrail   bool   `yaml:"audit_trail"`
	} `yaml:"storage"`
	Validation struct {
		// URL of an external validation service. Empty selects the
		// built-in validator.
		URL string `yaml:"url"`
	} `yaml:"validation"`
	Sync struct {
		// SettleMS is the debounce window in milliseconds before edits
		// are written through to disk. 0 selects the default.
		SettleMS int `yaml:"settle_ms"`
	} `yaml:"sync"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *EditorConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// QuestsDir returns the quest directory, defaulting to ./quests.
func (c *EditorConfig) QuestsDir() string {
	if c.Storage.QuestsDir == "" {
		return "quests"
	}
	return c.Storage.QuestsDir
}

// ReferenceDir returns the reference data directory, defaulting to ./data.
func (c *EditorConfig) ReferenceDir() string {
	if c.Storage.ReferenceDir == "" {
		return "data"
	}
	return c.Storage.ReferenceDir
}

// MetadataDB returns the metadata database path, defaulting to metadata.db.
func (c *EditorConfig) MetadataDB() string {
	if c.Storage.MetadataDB == "" {
		return "metadata.db"
	}
	return c.Storage.MetadataDB
}

// Settle returns the configured debounce window.
func (c *EditorConfig) Settle() time.Duration {
	return time.Duration(c.Sync.SettleMS) * time.Millisecond
}

func LoadEditorConfig(path string) (*EditorConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EditorConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported editor.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}
