package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/greenprotect/fieldops/internal/model/entities"
)

// Config is the agent's field/catalog configuration, loaded from YAML.
type Config struct {
	Fields  []entities.Field   `yaml:"fields"`
	Catalog []entities.Disease `yaml:"disease_catalog"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Fields) == 0 {
		return Config{}, fmt.Errorf("config %s: no fields defined", path)
	}
	seen := map[string]bool{}
	for i := range cfg.Fields {
		f := &cfg.Fields[i]
		if f.ID == "" {
			return Config{}, fmt.Errorf("config %s: field without id", path)
		}
		if seen[f.ID] {
			return Config{}, fmt.Errorf("config %s: duplicate field id %q", path, f.ID)
		}
		seen[f.ID] = true
		if f.DeviceID == "" {
			f.DeviceID = "sprayer-" + f.ID
		}
	}
	for _, d := range cfg.Catalog {
		if d.Name == "" {
			return Config{}, fmt.Errorf("config %s: catalog entry without name", path)
		}
		if !d.Severity.Valid() {
			return Config{}, fmt.Errorf("config %s: disease %q has unknown severity %q", path, d.Name, d.Severity)
		}
	}
	return cfg, nil
}
