// Package config builds the process-wide, immutable configuration record
// from environment variables. Env var names are themselves configurable,
// so a concrete proxy can rename the prefix without touching this package.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Names holds the environment variable names consulted by FromEnv. The
// zero value is invalid; use DefaultNames() as a starting point.
type Names struct {
	DB            string
	AdminToken    string
	Instance      string
	Port          string
	Host          string
	TestMode      string
	StartActive   string
	EncryptionKey string
}

// DefaultNames returns the default GENRO_PROXY_* environment variable names.
func DefaultNames() Names {
	return Names{
		DB:            "GENRO_PROXY_DB",
		AdminToken:    "GENRO_PROXY_API_TOKEN",
		Instance:      "GENRO_PROXY_INSTANCE",
		Port:          "GENRO_PROXY_PORT",
		Host:          "GENRO_PROXY_HOST",
		TestMode:      "GENRO_PROXY_TEST_MODE",
		StartActive:   "GENRO_PROXY_START_ACTIVE",
		EncryptionKey: "PROXY_ENCRYPTION_KEY",
	}
}

// Config is the immutable process-wide configuration record.
// Every field is set once at process start and never mutated afterward.
type Config struct {
	DatabaseURL string
	Instance    string
	Port        int
	Host        string
	AdminToken  string // empty ⇒ open access
	TestMode    bool
	StartActive bool
}

// FromEnv builds a Config from the environment. A nil names argument uses
// DefaultNames().
func FromEnv(names *Names) (Config, error) {
	n := DefaultNames()
	if names != nil {
		n = *names
	}

	cfg := Config{
		DatabaseURL: os.Getenv(n.DB),
		Instance:    getOr(n.Instance, "default"),
		Host:        getOr(n.Host, "0.0.0.0"),
		AdminToken:  os.Getenv(n.AdminToken),
		TestMode:    truthy(os.Getenv(n.TestMode)),
		StartActive: truthy(os.Getenv(n.StartActive)),
	}

	port := 8080
	if raw := os.Getenv(n.Port); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}
	cfg.Port = port

	return cfg, nil
}

func getOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// truthy parses the "1/true/yes" family of truthy string values.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
