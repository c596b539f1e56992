// Package instanceconfig reads and writes an instance directory's
// config.ini: sections [server], [database], [auth]. The parser is a
// hand-rolled line scanner, trimmed to the three sections this format
// actually has.
package instanceconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the parsed shape of an instance's config.ini.
type Config struct {
	ServerName string
	Host       string
	Port       int
	DBPath     string
	AdminToken string
}

// Load parses the config.ini file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("instanceconfig: read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	cfg := Config{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch section {
		case "server":
			switch key {
			case "name":
				cfg.ServerName = value
			case "host":
				cfg.Host = value
			case "port":
				if p, err := strconv.Atoi(value); err == nil {
					cfg.Port = p
				}
			}
		case "database":
			if key == "path" {
				cfg.DBPath = value
			}
		case "auth":
			if key == "api_token" {
				cfg.AdminToken = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("instanceconfig: scan: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path in the [server]/[database]/[auth] section form.
func Save(path string, cfg Config) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[server]\n")
	fmt.Fprintf(&b, "name = %s\n", cfg.ServerName)
	fmt.Fprintf(&b, "host = %s\n", cfg.Host)
	fmt.Fprintf(&b, "port = %d\n", cfg.Port)
	fmt.Fprintf(&b, "\n[database]\n")
	fmt.Fprintf(&b, "path = %s\n", cfg.DBPath)
	fmt.Fprintf(&b, "\n[auth]\n")
	fmt.Fprintf(&b, "api_token = %s\n", cfg.AdminToken)
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// Exists reports whether a config.ini already exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
