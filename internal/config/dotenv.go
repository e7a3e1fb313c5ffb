package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvFiles are read from the working directory when no env file is named.
// Variables already set are never replaced, so .env.local wins over .env
// and the process environment wins over both.
var EnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads environment variables from path. A named file must
// exist; an empty path reads whichever of EnvFiles are present.
func LoadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	for _, name := range EnvFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load env file %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig reads the env files, then the environment, into an AppConfig.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, fmt.Errorf("read environment: %w", err)
	}
	return envCfg.Normalize().ToAppConfig(), nil
}
