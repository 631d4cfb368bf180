package company

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one followed company as written in the catalog file.
type CatalogEntry struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

type catalogFile struct {
	Companies []CatalogEntry `yaml:"companies"`
}

// LoadCatalog reads a YAML file of the form
//
//	companies:
//	  - name: 네이버
//	    alias: NAVER
//
// A missing file yields an empty catalog.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Company catalog not found", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read company catalog: %w", err)
	}

	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse company catalog: %w", err)
	}

	seen := make(map[string]string, len(file.Companies))
	entries := make([]CatalogEntry, 0, len(file.Companies))
	for i, entry := range file.Companies {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Alias = strings.TrimSpace(entry.Alias)

		if entry.Name == "" {
			return nil, fmt.Errorf("company #%d: name is required", i+1)
		}

		key := Normalize(entry.Name)
		if key == "" {
			return nil, fmt.Errorf("company %q: name has no letters or digits", entry.Name)
		}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("company %q duplicates %q", entry.Name, prev)
		}
		seen[key] = entry.Name

		entries = append(entries, entry)
	}

	return entries, nil
}
