package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestConfigRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	in := Config{
		Account: Account{
			Name:     "my-cosmos",
			Endpoint: "https://my-cosmos.documents.azure.com:443/",
		},
		Database:    "testdb",
		Concurrency: 8,
	}
	if err := SaveTo(in, path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	out, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if out.Account.Name != "my-cosmos" {
		t.Errorf("account name = %q, want %q", out.Account.Name, "my-cosmos")
	}
	if out.Database != "testdb" {
		t.Errorf("database = %q, want %q", out.Database, "testdb")
	}
	if out.Container != "" {
		t.Errorf("container = %q, want empty", out.Container)
	}
	if out.Concurrency != 8 {
		t.Errorf("concurrency = %d, want 8", out.Concurrency)
	}
}

func TestLoadFromNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yaml")
	_, err := LoadFrom(path)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadFrom() error = %v, want ErrNotFound", err)
	}
}

func TestSaveToCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	c := Config{Account: Account{Name: "test", Endpoint: "https://test.documents.azure.com:443/"}}
	if err := SaveTo(c, path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if loaded.Account.Endpoint != c.Account.Endpoint {
		t.Errorf("endpoint = %q, want %q", loaded.Account.Endpoint, c.Account.Endpoint)
	}
}

func TestLoadFromOmitsOptionalFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	c := Config{Account: Account{Name: "old-account", Endpoint: "https://old.documents.azure.com:443/"}}
	if err := SaveTo(c, path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}
	out, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if out.Database != "" || out.Container != "" || out.Concurrency != 0 {
		t.Errorf("optional fields not zero: %+v", out)
	}
}
