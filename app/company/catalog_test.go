package company

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCatalog(t *testing.T) {
	data := []byte(`
companies:
  - name: " 네이버 "
    alias: NAVER
  - name: (주)카카오
`)

	entries, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "네이버" || entries[0].Alias != "NAVER" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Alias != "" {
		t.Errorf("Expected empty alias, got %q", entries[1].Alias)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"missing name", "companies:\n  - alias: X\n", "name is required"},
		{"no letters", "companies:\n  - name: \"---\"\n", "no letters or digits"},
		{"duplicate", "companies:\n  - name: 카카오\n  - name: (주)카카오\n", "duplicates"},
		{"invalid yaml", "companies: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	entries, err := LoadCatalog(filepath.Join(dir, "missing.yml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty catalog, got %d entries", len(entries))
	}

	path := filepath.Join(dir, "companies.yml")
	if err := os.WriteFile(path, []byte("companies:\n  - name: 회사A\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err = LoadCatalog(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "회사A" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}
