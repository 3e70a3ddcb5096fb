package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the optional quire.yaml file found at a root.
//
//	data: .quire
//	adapter: sqlite
//	codec: json
//	ownership_check: true
type Config struct {
	Data           string `yaml:"data"`
	Adapter        string `yaml:"adapter"`
	Codec          string `yaml:"codec"`
	EventBuffer    int    `yaml:"event_buffer"`
	OwnershipCheck bool   `yaml:"ownership_check"`
	ReadOnly       bool   `yaml:"read_only"`
}

// LoadConfig reads quire.yaml from root. A missing file yields the zero Config.
// A relative Data path is resolved against root.
func LoadConfig(root string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}

	if cfg.Data != "" && !filepath.IsAbs(cfg.Data) {
		cfg.Data = filepath.Join(root, cfg.Data)
	}
	return cfg, nil
}

// Options converts the file settings into options. Explicit options passed
// after these take precedence.
func (c Config) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Codec != "" {
		opts = append(opts, WithCodec(c.Codec))
	}
	if c.EventBuffer > 0 {
		opts = append(opts, WithEventBuffer(c.EventBuffer))
	}
	if c.OwnershipCheck {
		opts = append(opts, WithOwnershipCheck(true))
	}
	if c.ReadOnly {
		opts = append(opts, WithReadOnly(true))
	}
	return opts
}
