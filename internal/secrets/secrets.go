// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves provider credentials. A credential is looked up
// in the environment first (SERPER_API_KEY style), then in a directory of
// plain-text key files where the filename is the key name and the trimmed
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names recognized by the engine.
const (
	KeySerper = "serper-api-key"
	KeyOpenAI = "openai-api-key"
)

// Store holds the credentials read from a secrets directory.
type Store struct {
	values map[string]string
}

// Open reads every regular file in dir into the store. A missing directory
// is not an error; environment lookups still work against an empty store.
// Unreadable files produce a warning on stderr but do not abort.
func Open(dir string) (*Store, error) {
	s := &Store{values: make(map[string]string)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s.values[name] = value
		}
	}

	return s, nil
}

// Get returns the credential for name, preferring the environment variable
// form of the name over the key file. Empty string means not configured.
func (s *Store) Get(name string) string {
	if v := os.Getenv(EnvName(name)); v != "" {
		return v
	}
	return s.values[name]
}

// EnvName maps a key file name to its environment variable form:
// "serper-api-key" becomes "SERPER_API_KEY".
func EnvName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
