package config

import (
	"fmt"
	"os"

	"github.com/joy-dx/auroraproxy/dto"
	"gopkg.in/yaml.v3"
)

// FromFile reads a YAML config over the defaults. Secrets are not read from
// files; they come from the environment.
func FromFile(path string) (ProxySvcConfig, error) {
	cfg := DefaultProxySvcConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.ApplyYAML(data); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyYAML overlays a YAML document onto c. Keys absent from the document
// keep their current value.
func (c *ProxySvcConfig) ApplyYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	if c.ExtraHeaders == nil {
		c.ExtraHeaders = dto.ExtraHeaders{}
	}
	if c.UpstreamURL != "" {
		c.WithUpstreamURL(c.UpstreamURL)
	}
	return nil
}
