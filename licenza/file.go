package licenza

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// VoceLocale is one cached activation. The key is stored base64-encoded,
// which obscures it but is not encryption.
type VoceLocale struct {
	Chiave     string    `json:"chiave"`
	AttivataIl time.Time `json:"attivata_il"`
}

type contenutoFile struct {
	Licenze map[string]VoceLocale `json:"licenze"`
}

// FileLocale is the JSON cache of activated keys kept on the workstation.
type FileLocale struct {
	path string
	mu   sync.Mutex
}

func NewFileLocale(path string) *FileLocale {
	return &FileLocale{path: path}
}

func (f *FileLocale) Path() string {
	return f.path
}

// Load returns the cached keys by module, decoded. A missing file is empty.
func (f *FileLocale) Load() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.leggi()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(c.Licenze))
	for modulo, v := range c.Licenze {
		chiave, err := base64.StdEncoding.DecodeString(v.Chiave)
		if err != nil {
			return nil, fmt.Errorf("corrupt license entry for %s: %w", modulo, err)
		}
		out[modulo] = string(chiave)
	}
	return out, nil
}

// Get returns the cached key of modulo.
func (f *FileLocale) Get(modulo string) (string, bool, error) {
	chiavi, err := f.Load()
	if err != nil {
		return "", false, err
	}
	chiave, ok := chiavi[strings.ToUpper(modulo)]
	return chiave, ok, nil
}

// Set caches chiave for modulo, replacing any previous key.
func (f *FileLocale) Set(modulo, chiave string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.leggi()
	if err != nil {
		return err
	}
	c.Licenze[strings.ToUpper(modulo)] = VoceLocale{
		Chiave:     base64.StdEncoding.EncodeToString([]byte(chiave)),
		AttivataIl: time.Now(),
	}
	return f.scrivi(c)
}

// Remove drops the cached key of modulo.
func (f *FileLocale) Remove(modulo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.leggi()
	if err != nil {
		return err
	}
	delete(c.Licenze, strings.ToUpper(modulo))
	return f.scrivi(c)
}

func (f *FileLocale) leggi() (*contenutoFile, error) {
	c := &contenutoFile{Licenze: make(map[string]VoceLocale)}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse license file: %w", err)
	}
	if c.Licenze == nil {
		c.Licenze = make(map[string]VoceLocale)
	}
	return c, nil
}

func (f *FileLocale) scrivi(c *contenutoFile) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create license directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write license file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
