package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/drewfead/showtimes/internal/core"
	"github.com/drewfead/showtimes/internal/discovery"
)

const DefaultFile = ".env"

const (
	KeyShowtimesURL     = "SHOWTIMES_URL"
	KeyWebsiteID        = "WEBSITE_ID"
	KeyTheaterID        = "THEATER_ID"
	KeyScheduleEndpoint = "SCHEDULE_ENDPOINT"
	KeyChromePath       = "CHROME_PATH"
	KeyTimeZone         = "THEATER_TIME_ZONE"
)

// MissingKeysError lists every required key that had no value.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

type Config struct {
	Theater    core.TheaterConfig
	ChromePath string
}

// Lookup resolves a configuration key.
type Lookup func(key string) (string, bool)

// Load reads the dotenv file at path and overlays the non-empty process
// environment.
// An empty path means DefaultFile, which may be absent.
func Load(path string) (*Config, error) {
	fileValues, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	})
}

func readFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			zap.L().Debug("No config file, using environment only", zap.String("path", path))
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return values, nil
}

// FromLookup builds a Config, reporting all missing required keys together.
func FromLookup(lookup Lookup) (*Config, error) {
	var missing []string
	required := func(key string) string {
		v, _ := lookup(key)
		v = strings.TrimSpace(v)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	optional := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		Theater: core.TheaterConfig{
			ShowtimesURL:     required(KeyShowtimesURL),
			WebsiteID:        required(KeyWebsiteID),
			TheaterID:        required(KeyTheaterID),
			ScheduleEndpoint: required(KeyScheduleEndpoint),
			TimeZone:         optional(KeyTimeZone, core.DefaultTimeZone),
		},
		ChromePath: optional(KeyChromePath, discovery.DefaultChromePath),
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Keys: missing}
	}
	return cfg, nil
}
