// common/config/config.go

// Package config загружает конфигурацию сервиса: defaults → YAML → ENV → Validate().
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Options описывает один вызов Load.
type Options struct {
	// Path — путь к YAML-файлу; пустая строка → только defaults и ENV.
	Path string
	// EnvPrefix — префикс ENV переменных, например "AUTHGATE".
	EnvPrefix string
	// Out — указатель на структуру конфигурации.
	Out interface{}
	// Defaults — значения по умолчанию в формате "section.key".
	Defaults map[string]interface{}
	// Aliases связывает ключ с дополнительными именами ENV переменных
	// (без префикса). Первое непустое значение побеждает.
	Aliases map[string][]string
}

// Load загружает конфиг в opts.Out и вызывает Validate(), если он реализован.
func Load(opts Options) error {
	if opts.Out == nil {
		return fmt.Errorf("config: Out is required")
	}
	v := viper.New()

	for key, val := range opts.Defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range opts.Aliases {
		envs := make([]string, 0, len(names)+1)
		envs = append(envs, envName(opts.EnvPrefix, key))
		envs = append(envs, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("config: bind env %q: %w", key, err)
		}
	}

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read config %q: %w", opts.Path, err)
		}
	}

	if err := decode(v.AllSettings(), opts.Out); err != nil {
		return fmt.Errorf("config: decode failed: %w", err)
	}

	if val, ok := opts.Out.(interface{ Validate() error }); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("config: validation failed: %w", err)
		}
	}
	return nil
}

func envName(prefix, key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if prefix == "" {
		return name
	}
	return strings.ToUpper(prefix) + "_" + name
}
