package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vietddude/wikibot/internal/infra/mediawiki"
)

// Resolve loads the bot credentials described by the config: from a
// file when one is set, otherwise from environment variables.
func (c CredentialsConfig) Resolve() (mediawiki.Credentials, error) {
	if c.File != "" {
		return credentialsFromFile(c.File, c.Format)
	}
	if c.UsernameEnv != "" && c.PasswordEnv != "" {
		return credentialsFromEnv(c.UsernameEnv, c.PasswordEnv)
	}
	return mediawiki.Credentials{}, fmt.Errorf("credentials: neither file nor env var names configured")
}

func credentialsFromFile(path, format string) (mediawiki.Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return mediawiki.Credentials{}, fmt.Errorf("credentials: %w", err)
	}
	defer f.Close()

	switch format {
	case "plaintext":
		// Two lines: username, then password.
		scanner := bufio.NewScanner(f)
		var lines []string
		for scanner.Scan() && len(lines) < 2 {
			lines = append(lines, strings.TrimSpace(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return mediawiki.Credentials{}, fmt.Errorf("credentials: read %s: %w", path, err)
		}
		if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
			return mediawiki.Credentials{}, fmt.Errorf("credentials: %s must contain username and password lines", path)
		}
		return mediawiki.Credentials{Username: lines[0], Password: lines[1]}, nil

	case "json":
		var parsed struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(f).Decode(&parsed); err != nil {
			return mediawiki.Credentials{}, fmt.Errorf("credentials: parse %s: %w", path, err)
		}
		if parsed.Username == "" || parsed.Password == "" {
			return mediawiki.Credentials{}, fmt.Errorf("credentials: %s is missing username or password", path)
		}
		return mediawiki.Credentials{Username: parsed.Username, Password: parsed.Password}, nil

	default:
		return mediawiki.Credentials{}, fmt.Errorf("credentials: invalid format %q", format)
	}
}

func credentialsFromEnv(usernameEnv, passwordEnv string) (mediawiki.Credentials, error) {
	username := os.Getenv(usernameEnv)
	password := os.Getenv(passwordEnv)
	if username == "" || password == "" {
		return mediawiki.Credentials{}, fmt.Errorf("credentials: %s or %s is not set", usernameEnv, passwordEnv)
	}
	return mediawiki.Credentials{Username: username, Password: password}, nil
}
