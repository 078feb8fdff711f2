package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bagger/internal/config"
)

// DefaultAPIURL is the backend used when neither the config file nor the
// environment names one.
const DefaultAPIURL = "http://localhost:8000"

// LoadEnv loads variables from the given .env files (default ".env" in the
// working directory) without overriding ones already set. Missing files are
// ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// APIURLFromEnv returns BAGGER_API_URL with any trailing slash removed.
func APIURLFromEnv() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv("BAGGER_API_URL")), "/")
}

// LoadConfig reads the config file at path and applies environment
// overrides. BAGGER_API_URL wins over api_url.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if u := APIURLFromEnv(); u != "" {
		cfg.APIURL = u
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}
