package abisource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"abiFrame/internal/decode"
)

// Static is an in-memory address registry. Addresses match case-insensitively.
type Static struct {
	mu     sync.RWMutex
	byAddr map[string]*decode.Interface
}

func NewStatic() *Static {
	return &Static{byAddr: make(map[string]*decode.Interface)}
}

func (s *Static) Add(address string, iface *decode.Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAddr[normalizeAddress(address)] = iface
}

// AddJSON parses raw ABI JSON and registers it for address.
func (s *Static) AddJSON(address, raw string) error {
	iface, err := decode.ParseInterface(raw)
	if err != nil {
		return fmt.Errorf("abi for %s: %w", address, err)
	}
	s.Add(address, iface)
	return nil
}

func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAddr)
}

func (s *Static) Resolve(_ context.Context, address string) (*decode.Interface, error) {
	s.mu.RLock()
	iface, ok := s.byAddr[normalizeAddress(address)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return iface, nil
}

// LoadPaths registers address -> ABI file entries. Relative paths resolve
// against baseDir.
func (s *Static) LoadPaths(paths map[string]string, baseDir string) error {
	for address, path := range paths {
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read abi for %s: %w", address, err)
		}
		if err := s.AddJSON(address, string(raw)); err != nil {
			return err
		}
	}
	return nil
}

// LoadTOML reads a registry file of `address = "path/to/abi.json"` pairs.
// Paths are relative to the registry file.
func (s *Static) LoadTOML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read abi registry: %w", err)
	}
	entries := map[string]string{}
	if err := toml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse abi registry %s: %w", path, err)
	}
	return s.LoadPaths(entries, filepath.Dir(path))
}
