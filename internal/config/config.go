// Package config loads environment configuration for the gate. A .env
// file is optional; real environment variables always win, matching the
// dotenv convention the connector scripts follow.
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const envDirName = ".connector-gate"

// LoadEnv loads variables from the first .env found: the working
// directory, then ~/.connector-gate/.env. A missing file is fine.
func LoadEnv() {
	for _, path := range []string{".env", filepath.Join(homeDir(), envDirName, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("⚠️ Could not load %s: %v", path, err)
			continue
		}
		log.Printf("📦 Loaded environment from %s", path)
		return
	}
}

// DBPath returns the credential database location.
func DBPath() string {
	if v := os.Getenv("GATE_DB"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), envDirName, "credentials.db")
}

// CatalogPath returns the provider catalog file, or empty to use the
// built-in catalog.
func CatalogPath() string {
	return os.Getenv("GATE_PROVIDERS")
}

// ListenAddr returns the admin API listen address. Defaults to
// localhost only; set GATE_HOST=0.0.0.0 for LAN access.
func ListenAddr() string {
	host := os.Getenv("GATE_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("GATE_PORT")
	if port == "" {
		port = "8087"
	}
	return host + ":" + port
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
