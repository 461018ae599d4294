package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

// configName is the config file name without extension.
const configName = ".promptpack"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for promptpack settings.
const envPrefix = "PROMPTPACK"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// profilesKey is the config file section holding named profiles.
const profilesKey = "profiles"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
// A non-empty profile selects a named section under "profiles" whose
// values override the base settings.
func Load(configPath, profile string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	mergeErr := mergeProfile(viperCfg, profile)
	if mergeErr != nil {
		return nil, mergeErr
	}

	schemaErr := validateSchema(viperCfg)
	if schemaErr != nil {
		return nil, schemaErr
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// mergeProfile overlays the named profile section onto the base settings.
func mergeProfile(viperCfg *viper.Viper, profile string) error {
	if profile == "" {
		return nil
	}

	section := viperCfg.GetStringMap(profilesKey + "." + profile)
	if len(section) == 0 {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, profile)
	}

	mergeErr := viperCfg.MergeConfigMap(section)
	if mergeErr != nil {
		return fmt.Errorf("merge profile %q: %w", profile, mergeErr)
	}

	return nil
}

// validateSchema checks the merged settings against the embedded JSON
// schema before unmarshalling, so typos in key names or value types are
// reported with field paths.
func validateSchema(viperCfg *viper.Viper) error {
	settings := viperCfg.AllSettings()
	delete(settings, profilesKey)

	schemaLoader := gojsonschema.NewBytesLoader(configSchema)
	settingsLoader := gojsonschema.NewGoLoader(settings)

	result, err := gojsonschema.Validate(schemaLoader, settingsLoader)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("include", []string{})
	viperCfg.SetDefault("exclude", []string{})
	viperCfg.SetDefault("include_priority", false)
	viperCfg.SetDefault("hidden", false)
	viperCfg.SetDefault("no_ignore", false)

	viperCfg.SetDefault("format", DefaultFormat)
	viperCfg.SetDefault("line_numbers", false)
	viperCfg.SetDefault("absolute_paths", false)
	viperCfg.SetDefault("no_codeblock", false)
	viperCfg.SetDefault("sort", DefaultSort)

	viperCfg.SetDefault("trace.source_roots", []string{"src", "lib", "source"})
	viperCfg.SetDefault("trace.filter_unused", false)
	viperCfg.SetDefault("trace.max_files", 0)
	viperCfg.SetDefault("trace.workers", 0)
}
