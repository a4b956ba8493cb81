package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	scribeDir := filepath.Join(configDir, "scribe")
	if err := os.MkdirAll(scribeDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(scribeDir, "config.toml"), nil
}

// Load reads the config file (defaults when absent) and applies
// environment overrides. A .env file in the working directory is
// honored first.
func Load() (*Config, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		log.Printf("config: loading %s", configPath)
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	config.applyEnvOverrides()
	return config, nil
}

// applyEnvOverrides lets deployments point at a different model or
// server without touching the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCRIBE_MODEL_PATH"); v != "" {
		c.Recognizer.ModelPath = v
	}
	if v := os.Getenv("SCRIBE_ENDPOINT"); v != "" {
		c.Inference.EndpointURL = v
	}
	if v := os.Getenv("SCRIBE_RECOGNIZER_URL"); v != "" {
		c.Recognizer.ServerURL = v
	}
	if c.Inference.APIKey == "" {
		c.Inference.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Save writes the configuration to the config path.
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", configPath, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
