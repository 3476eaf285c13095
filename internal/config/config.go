package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads configuration from file into config, which must be a pointer to
// a struct. Values already set on the struct act as defaults; environment
// variables override file values (keys joined with "_").
func Load(file string, config any) error {
	v := viper.New()

	defaults := make(map[string]any)
	if err := mapstructure.Decode(config, &defaults); err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return fmt.Errorf("merge defaults: %v", err)
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %v", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}
