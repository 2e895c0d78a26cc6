package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if len(cfg.ApplicationTypes) == 0 {
		t.Fatal("embedded catalog has no application types")
	}
	if len(cfg.ChatCommands) == 0 {
		t.Error("embedded catalog has no chat commands")
	}
	if cfg.UniversityName == "" {
		t.Error("embedded catalog has no university name")
	}
}

func TestLoadFallsBackToEmbedded(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if len(cfg.ApplicationTypes) == 0 {
		t.Error("fallback catalog has no application types")
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "university.json")
	override := `{
		"universityName": "Тестовый университет",
		"applicationTypes": [{"id": "custom", "name": "Особая справка", "description": "тест"}]
	}`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UniversityName != "Тестовый университет" || len(cfg.ApplicationTypes) != 1 {
		t.Errorf("override not applied: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "university.json")
	if err := os.WriteFile(path, []byte(`{"universityName": "X"}`), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("catalog without application types accepted")
	}
}

func TestApplicationTypeLookups(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	first := cfg.ApplicationTypes[0]

	byID, ok := cfg.ApplicationType(first.ID)
	if !ok || byID.Name != first.Name {
		t.Errorf("ApplicationType(%q) = %+v, %v", first.ID, byID, ok)
	}
	if _, ok := cfg.ApplicationType("vanished"); ok {
		t.Error("unknown id resolved")
	}

	byName, ok := cfg.ApplicationTypeByName(first.Name)
	if !ok || byName.ID != first.ID {
		t.Errorf("ApplicationTypeByName(%q) = %+v, %v", first.Name, byName, ok)
	}
	// Display-name lookup is case-insensitive.
	if _, ok := cfg.ApplicationTypeByName(strings.ToUpper(first.Name)); !ok {
		t.Errorf("uppercase lookup of %q failed", first.Name)
	}
}
