package forecastprep

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every settings environment variable, e.g.
// FORECASTPREP_GROUP_BY=region,store.
const EnvPrefix = "FORECASTPREP"

var validate = validator.New()

// LoadSettings loads settings from the environment and, when path is not
// empty, from a YAML file. Variables that are set in the environment take
// precedence over the file; the file takes precedence over defaults.
func LoadSettings(path string) (Settings, error) {
	var env Settings
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Settings{}, fmt.Errorf("failed to load settings from env: %w", err)
	}

	s := env
	if path != "" {
		file, err := loadSettingsFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to load settings from file: %w", err)
		}
		s = mergeSettings(*file, env)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the required fields and the frequency code.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}
	if _, err := ParseFrequency(s.Frequency); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}
	return nil
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + name)
	return ok
}

// mergeSettings overlays file values on env values that were not set
// explicitly.
func mergeSettings(file, env Settings) Settings {
	if file.Frequency != "" && !envSet("FREQUENCY") {
		env.Frequency = file.Frequency
	}
	if file.OrderBy != "" && !envSet("ORDER_BY") {
		env.OrderBy = file.OrderBy
	}
	if file.Target != "" && !envSet("TARGET") {
		env.Target = file.Target
	}
	if len(file.GroupBy) > 0 && !envSet("GROUP_BY") {
		env.GroupBy = file.GroupBy
	}
	if len(file.Hierarchy) > 0 && !envSet("HIERARCHY") {
		env.Hierarchy = file.Hierarchy
	}
	if len(file.ExogVars) > 0 && !envSet("EXOG_VARS") {
		env.ExogVars = file.ExogVars
	}
	return env
}
