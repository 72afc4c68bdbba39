package jsonapi

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes one facility reachable through a conventional JSON API:
// POST to the collection to submit, PATCH and DELETE on the item to edit.
type Config struct {
	Name            string            `mapstructure:"name"`
	BaseURL         string            `mapstructure:"base_url"`
	SubmitPath      string            `mapstructure:"submit_path"`
	ItemPath        string            `mapstructure:"item_path"`
	Editable        bool              `mapstructure:"editable"`
	Headers         map[string]string `mapstructure:"headers"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	ExternalIDField string            `mapstructure:"external_id_field"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SubmitPath) == "" {
		c.SubmitPath = "/requests"
	}
	if strings.TrimSpace(c.ItemPath) == "" {
		c.ItemPath = "/requests/{id}"
	}
	if strings.TrimSpace(c.ExternalIDField) == "" {
		c.ExternalIDField = "id"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("facility name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("facility %q: base_url is required", c.Name)
	}
	if !strings.Contains(c.ItemPath, "{id}") {
		return fmt.Errorf("facility %q: item_path must contain {id}", c.Name)
	}
	return nil
}

// LoadConfigs reads the facilities list from a YAML file. Header values are
// expanded against the environment so tokens stay out of the file.
func LoadConfigs(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read facilities config: %w", err)
	}

	var configs []Config
	if err := v.UnmarshalKey("facilities", &configs); err != nil {
		return nil, fmt.Errorf("decode facilities config: %w", err)
	}
	for i := range configs {
		for name, value := range configs[i].Headers {
			configs[i].Headers[name] = os.ExpandEnv(value)
		}
	}
	return configs, nil
}
