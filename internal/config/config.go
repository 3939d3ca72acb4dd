package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	FileYAML = "tourline.yml"
	FileTOML = "tourline.toml"
)

// Config models tourline.yml (or tourline.toml).
type Config struct {
	Import   Import    `yaml:"import" toml:"import" json:"import"`
	Sensors  []Sensor  `yaml:"sensors" toml:"sensors" json:"sensors"`
	Webhooks []Webhook `yaml:"webhooks" toml:"webhooks" json:"webhooks"`
	Server   Server    `yaml:"server" toml:"server" json:"server"`
}

type Import struct {
	SourceSuffix    string   `yaml:"source_suffix" toml:"source_suffix" json:"source_suffix"`
	Extensions      []string `yaml:"extensions" toml:"extensions" json:"extensions"`
	SignatureWindow int      `yaml:"signature_window" toml:"signature_window" json:"signature_window"`
}

// Sensor seeds the sensor registry. Imports only look sensors up.
type Sensor struct {
	SensorID     int64  `yaml:"sensor_id" toml:"sensor_id" json:"sensor_id"`
	Name         string `yaml:"name" toml:"name" json:"name"`
	Manufacturer string `yaml:"manufacturer" toml:"manufacturer" json:"manufacturer,omitempty"`
	Product      string `yaml:"product" toml:"product" json:"product,omitempty"`
	SerialNumber string `yaml:"serial_number" toml:"serial_number" json:"serial_number,omitempty"`
}

type Webhook struct {
	URL            string   `yaml:"url" toml:"url" json:"url"`
	Secret         string   `yaml:"secret" toml:"secret" json:"-"`
	Events         []string `yaml:"events" toml:"events" json:"events,omitempty"`
	Enabled        *bool    `yaml:"enabled" toml:"enabled" json:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds,omitempty"`
}

// Active reports whether the hook is enabled. Hooks are enabled unless disabled explicitly.
func (w Webhook) Active() bool { return w.Enabled == nil || *w.Enabled }

// Wants reports whether the hook subscribed to evtType. An empty list means every event.
func (w Webhook) Wants(evtType string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == evtType || e == "*" {
			return true
		}
	}
	return false
}

type Server struct {
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	BasePath string `yaml:"base_path" toml:"base_path" json:"base_path"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Import.SourceSuffix) == "" {
		return fmt.Errorf("config.import.source_suffix is required")
	}
	if c.Import.SignatureWindow <= 0 {
		return fmt.Errorf("config.import.signature_window must be positive")
	}
	for _, ext := range c.Import.Extensions {
		if ext == "" {
			return fmt.Errorf("config.import.extensions contains an empty extension")
		}
	}
	seen := map[int64]bool{}
	for _, s := range c.Sensors {
		if seen[s.SensorID] {
			return fmt.Errorf("sensor %d is listed twice", s.SensorID)
		}
		seen[s.SensorID] = true
	}
	for i, h := range c.Webhooks {
		if h.URL == "" {
			return fmt.Errorf("webhook %d has no url", i)
		}
		if h.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %s has a negative timeout", h.URL)
		}
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace. A TOML file is used when
// present, YAML otherwise.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	toml := filepath.Join(workspace, FileTOML)
	if _, err := os.Stat(toml); err == nil {
		return toml
	}
	return filepath.Join(workspace, FileYAML)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	cfg, err := FromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tl config init", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOptional returns the default config if no config file exists.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromTOML parses and validates config from raw TOML bytes.
func FromTOML(data []byte) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("invalid config toml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads config from path, choosing the format by extension.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FromTOML(data)
	}
	return FromYAML(data)
}

const defaultTemplate = `import:
  source_suffix: "74953"
  extensions: [.mt, .xml]
  signature_window: 512

# sensors known to the workspace; imports never create sensors
sensors: []

webhooks: []

server:
  addr: ":8080"
  base_path: /v0
`
