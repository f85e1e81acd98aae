package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the tag engine.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where inkwell stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the engine
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from INKWELL_* environment variables.
// Empty values are skipped so defaults take effect.
func (p *Profile) FromEnv() {
	if v := os.Getenv("INKWELL_MODE"); v != "" {
		p.Mode = v
	}
	if v := os.Getenv("INKWELL_DATA"); v != "" {
		p.Data = v
	}
	if v := os.Getenv("INKWELL_DSN"); v != "" {
		p.DSN = v
	}
	p.Driver = getEnvOrDefault("INKWELL_DRIVER", p.Driver)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "inkwell")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/inkwell"
		}
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("inkwell_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	return nil
}
