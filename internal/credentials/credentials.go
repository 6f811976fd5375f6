package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/neubell/llm-meter/internal/core"
)

// ErrNotFound means no key is stored for the provider and no fallback env
// var is set.
var ErrNotFound = errors.New("credentials: no API key found")

// Store keeps API keys in a 0600 JSON file keyed by normalized provider
// name, with a <PROVIDER>_API_KEY env var fallback. Secret values are never
// logged.
type Store struct {
	path string
}

type fileFormat struct {
	Keys map[string]string `json:"keys"`
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "credentials.json")
}

// mu guards read-modify-write cycles on the credentials file.
var mu sync.Mutex

func (s *Store) load() (fileFormat, error) {
	creds := fileFormat{Keys: make(map[string]string)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("credentials: reading store: %w", err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return fileFormat{Keys: make(map[string]string)}, fmt.Errorf("credentials: parsing store: %w", err)
	}
	if creds.Keys == nil {
		creds.Keys = make(map[string]string)
	}
	return creds, nil
}

func (s *Store) write(creds fileFormat) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("credentials: creating store dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("credentials: marshaling store: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("credentials: writing store: %w", err)
	}
	return nil
}

// EnvVar is the fallback environment variable for a provider, e.g.
// OPENAI_API_KEY.
func EnvVar(provider string) string {
	normalized := core.NormalizeProviderName(provider)
	return strings.ToUpper(strings.ReplaceAll(normalized, "-", "_")) + "_API_KEY"
}

// Get returns the provider's API key, preferring the stored value over the
// env var. ErrNotFound when neither yields a non-empty secret.
func (s *Store) Get(provider string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	normalized := core.NormalizeProviderName(provider)
	creds, err := s.load()
	if err != nil {
		return "", err
	}
	if key := creds.Keys[normalized]; key != "" {
		return key, nil
	}
	if key := os.Getenv(EnvVar(normalized)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w for provider %q; configure it in the TUI or set %s", ErrNotFound, normalized, EnvVar(normalized))
}

// Has reports whether Get would succeed.
func (s *Store) Has(provider string) bool {
	_, err := s.Get(provider)
	return err == nil
}

func (s *Store) Set(provider, apiKey string) error {
	mu.Lock()
	defer mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.Keys[core.NormalizeProviderName(provider)] = apiKey
	return s.write(creds)
}

// Delete removes the stored key. Deleting an absent key is not an error.
func (s *Store) Delete(provider string) error {
	mu.Lock()
	defer mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	delete(creds.Keys, core.NormalizeProviderName(provider))
	return s.write(creds)
}
