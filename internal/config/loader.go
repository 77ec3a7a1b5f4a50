package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mend/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/mend"
	configFileName = "config.yaml"

	// UIBaseURLEnvVar overrides ui.base_url.
	UIBaseURLEnvVar = "MEND_BASE_URL"
	// APIBaseURLEnvVar overrides api.base_url.
	APIBaseURLEnvVar = "MEND_API_BASE_URL"
	// AuthTokenEnvVar overrides api.auth_token, keeping tokens out of files.
	AuthTokenEnvVar = "MEND_AUTH_TOKEN"
	// HistoryDBEnvVar overrides history.path.
	HistoryDBEnvVar = "MEND_HISTORY_DB"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// DefaultHistoryPath is where `mend history` looks when no --db flag or
// config entry points elsewhere.
func DefaultHistoryPath() string {
	return filepath.Join(GetDefaultConfigPathOrPanic(), "history.db")
}

// LoadConfig loads configuration from a single specified directory. The
// directory should contain config.yaml; a missing file yields the defaults.
// Environment overrides (MEND_*) are applied after the file so that
// flag > env > file > default holds once commands layer their flags on top.
func LoadConfig(configPath string) (MendConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return MendConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return MendConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(config *MendConfig) {
	if v := os.Getenv(UIBaseURLEnvVar); v != "" {
		config.UI.BaseURL = v
	}
	if v := os.Getenv(APIBaseURLEnvVar); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv(AuthTokenEnvVar); v != "" {
		config.API.AuthToken = v
	}
	if v := os.Getenv(HistoryDBEnvVar); v != "" {
		config.History.Path = v
	}
}
