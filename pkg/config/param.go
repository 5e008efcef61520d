package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aretw0/qcal/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ParamConfig is an instruction parameter as written in a config file.
type ParamConfig struct {
	Symbol string   `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Value  *float64 `yaml:"value,omitempty" json:"value,omitempty"`
}

// Param converts to the domain representation.
func (p ParamConfig) Param() domain.Param {
	out := domain.Param{Symbol: p.Symbol}
	if p.Value != nil {
		v := *p.Value
		out.Value = &v
	}
	return out
}

// UnmarshalYAML accepts a number, a symbol name or a {symbol, value} mapping.
func (p *ParamConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return p.scalar(node.Value)
	}
	type plain ParamConfig
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*p = ParamConfig(v)
	return nil
}

// UnmarshalJSON accepts a number, a string or an object.
func (p *ParamConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ParamConfig{Symbol: s}
		return nil
	}
	if len(data) > 0 && data[0] != '{' {
		return p.scalar(string(data))
	}
	type plain ParamConfig
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ParamConfig(v)
	return nil
}

func (p *ParamConfig) scalar(s string) error {
	if s == "" {
		return fmt.Errorf("empty parameter")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*p = ParamConfig{Value: &v}
		return nil
	}
	*p = ParamConfig{Symbol: s}
	return nil
}
