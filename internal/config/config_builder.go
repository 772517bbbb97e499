package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

type configBuilder struct {
	configs []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		configs: make([]*StructuredConfig, 0, 4),
	}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config, err := merge(b.configs...)
	if err != nil {
		return nil, fmt.Errorf("error merging configs: %w", err)
	}

	defaults := DefaultServerConfig()
	if err = applyDefaults(config, &defaults); err != nil {
		return nil, err
	}

	return config, config.validate()
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	if err := parseEnv(envCfg, ServerEnvPrefix); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, envCfg)
	return b
}

func (b *configBuilder) withFlags(args []string) *configBuilder {
	flags, err := ParseFlags(args)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, flags)
	return b
}

func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			jsonPath = cfg.JSONFilePath
		}
	}

	if jsonPath == "" {
		return b
	}

	jsonCfg, err := parseJSON(jsonPath)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, jsonCfg)

	return b
}

// merge folds configs left to right; non-zero fields of later configs win.
func merge[T any](configs ...*T) (*T, error) {
	result := new(T)
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if err := mergo.Merge(result, cfg, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// applyDefaults fills every zero field of cfg from defaults.
func applyDefaults[T any](cfg, defaults *T) error {
	if err := mergo.Merge(cfg, defaults); err != nil {
		return fmt.Errorf("error applying defaults: %w", err)
	}
	return nil
}
