package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// loader layers defaults, the YAML file contents and environment overrides
// into a StorageConfig.
type loader struct {
	koanf     *koanf.Koanf
	validator *validator.Validate
	envPrefix string
}

func newLoader(v *validator.Validate, envPrefix string) *loader {
	return &loader{
		koanf:     koanf.New("."),
		validator: v,
		envPrefix: envPrefix,
	}
}

// load builds a config from raw file contents. A nil or empty file yields
// defaults plus environment overrides.
func (l *loader) load(data []byte) (StorageConfig, error) {
	l.koanf = koanf.New(".")
	if err := l.loadDefaults(); err != nil {
		return Default(), err
	}
	if err := l.loadYAML(data); err != nil {
		return Default(), err
	}
	if err := l.loadEnvironment(); err != nil {
		return Default(), err
	}
	return l.unmarshalAndValidate()
}

// loadDefaults loads the default configuration.
func (l *loader) loadDefaults() error {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	return nil
}

// loadYAML merges only the keys present in the file, preserving defaults for the rest.
func (l *loader) loadYAML(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	for key, value := range flattenMap("", raw) {
		if value == nil {
			continue
		}
		if err := l.koanf.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}
	return nil
}

// transformEnvKey converts STORAGECTL_AUTO_CLEAN_DAYS to auto_clean_days.
func (l *loader) transformEnvKey(key string, value string) (string, any) {
	return strings.ToLower(strings.TrimPrefix(key, l.envPrefix)), value
}

// loadEnvironment loads configuration from environment variables.
func (l *loader) loadEnvironment() error {
	if l.envPrefix == "" {
		return nil
	}
	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix:        l.envPrefix,
		TransformFunc: l.transformEnvKey,
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// flattenMap flattens a nested map into dot-notation keys
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nestedMap, ok := v.(map[string]any); ok {
			for fk, fv := range flattenMap(key, nestedMap) {
				result[fk] = fv
			}
		} else {
			result[key] = v
		}
	}
	return result
}

// unmarshalAndValidate unmarshals the configuration and validates it.
func (l *loader) unmarshalAndValidate() (StorageConfig, error) {
	var cfg StorageConfig
	if err := l.koanf.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	}); err != nil {
		return Default(), fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.validator.Struct(cfg); err != nil {
		return Default(), fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
