package scopes

import (
	"encoding/json"
	"fmt"
	"os"

	_ "embed"
)

//go:embed catalog.json
var catalogJSON []byte

// Embedded parses the seeded scope risk catalog and returns it as a Library.
func Embedded() (*Library, error) {
	var entries []Entry
	if err := json.Unmarshal(catalogJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse embedded scope catalog: %w", err)
	}
	return NewLibrary(entries)
}

// LoadFile parses a scope catalog from disk. Deployments can override the
// embedded catalog with their own entries this way.
func LoadFile(path string) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope catalog %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse scope catalog %s: %w", path, err)
	}
	return NewLibrary(entries)
}
