package process

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config describes the external simulator command.
type Config struct {
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Dir         string            `yaml:"dir" json:"dir" mapstructure:"dir"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// DecodeConfig reads a Config from free-form executor settings.
// Durations may be given as strings ("30s").
func DecodeConfig(settings map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("failed to decode process executor settings: %w", err)
	}
	if cfg.Command == "" {
		return Config{}, fmt.Errorf("process executor requires a command")
	}
	return cfg, nil
}
