// Package config loads the static university catalog consumed by the chatbot and
// the REST API: application types, chatbot commands, canned texts and support
// contacts. The catalog is loaded once at startup and treated as immutable.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "embed"

	"github.com/BTreeMap/UniDesk/internal/models"
)

//go:embed university.json
var embeddedCatalog []byte

// Config is the university catalog. All fields are read-only after Load.
type Config struct {
	UniversityName      string                   `json:"universityName"`
	UniversityShortName string                   `json:"universityShortName"`
	SupportEmail        string                   `json:"supportEmail"`
	SupportPhone        string                   `json:"supportPhone"`
	WelcomeMessage      string                   `json:"welcomeMessage"`
	ApplicationTypes    []models.ApplicationType `json:"applicationTypes"`
	ChatCommands        []models.ChatCommand     `json:"chatCommands"`
	Features            []string                 `json:"features"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Config, error) {
	return parse(embeddedCatalog)
}

// Load reads a catalog override from the given path, falling back to the
// embedded catalog when the path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		slog.Debug("config.Load: no override path, using embedded catalog")
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read university config %s: %w", path, err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse university config %s: %w", path, err)
	}
	slog.Info("config.Load: loaded university catalog override", "path", path, "application_types", len(cfg.ApplicationTypes))
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid university catalog: %w", err)
	}
	if len(cfg.ApplicationTypes) == 0 {
		return nil, fmt.Errorf("university catalog has no application types")
	}
	return &cfg, nil
}

// ApplicationType resolves a catalog entry by its id tag.
func (c *Config) ApplicationType(id string) (models.ApplicationType, bool) {
	for _, t := range c.ApplicationTypes {
		if t.ID == id {
			return t, true
		}
	}
	return models.ApplicationType{}, false
}

// ApplicationTypeByName resolves a catalog entry by its display name,
// case-insensitively. Used by the chat flow where buttons carry display names.
func (c *Config) ApplicationTypeByName(name string) (models.ApplicationType, bool) {
	for _, t := range c.ApplicationTypes {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return models.ApplicationType{}, false
}
