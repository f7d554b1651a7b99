// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from dotenv files. In the directory each file is one secret: the filename is the
// key name and the file contents (trimmed) are the value. Dotenv variables are mapped
// to the same key names (OPENAI_API_KEY → openai-api-key).
//
// Known keys: openai-api-key, anthropic-api-key, semantic-scholar-api-key, openalex-email.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names.
const (
	OpenAIKey          = "openai-api-key"
	AnthropicKey       = "anthropic-api-key"
	SemanticScholarKey = "semantic-scholar-api-key"
	OpenAlexEmail      = "openalex-email"
)

// ErrMissingCredential is returned by Require when a key has no value.
var ErrMissingCredential = errors.New("missing credential")

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadAll reads dir with Load, then fills keys still unset from the given
// dotenv files. Missing dotenv files are skipped.
func LoadAll(dir string, envFiles ...string) (map[string]string, error) {
	secrets, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		env, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for k, v := range env {
			key := KeyName(k)
			if _, ok := secrets[key]; ok || strings.TrimSpace(v) == "" {
				continue
			}
			secrets[key] = strings.TrimSpace(v)
		}
	}
	return secrets, nil
}

// KeyName maps an environment variable name to a secret key name.
func KeyName(envVar string) string {
	return strings.ToLower(strings.ReplaceAll(envVar, "_", "-"))
}

// EnvName maps a secret key name to its environment variable name.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Lookup returns the value of key from secrets, falling back to the
// process environment.
func Lookup(secrets map[string]string, key string) string {
	if v, ok := secrets[key]; ok {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(key)))
}

// Require is Lookup that fails with ErrMissingCredential when key is unset.
func Require(secrets map[string]string, key string) (string, error) {
	if v := Lookup(secrets, key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: set .secrets/%s or %s", ErrMissingCredential, key, EnvName(key))
}
