// Package config loads the atlas host configuration.
package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the host configuration, read from atlas.yaml in the data dir.
type Config struct {
	// DefaultMode is the mode the map opens in.
	DefaultMode string `yaml:"defaultMode"`
	// DefaultLanguage selects the initial style document language.
	DefaultLanguage string `yaml:"defaultLanguage"`
	// Languages lists the languages style documents exist for.
	Languages []string `yaml:"languages"`
	// DebounceMS is the mode-change debounce window in milliseconds.
	// Zero keeps the orchestrator default.
	DebounceMS int `yaml:"debounceMs"`

	Source struct {
		// URL of the shared vector tile source.
		URL string `yaml:"url"`
		// TerrainURL of the raster-dem source for route-mode relief.
		TerrainURL string `yaml:"terrainUrl"`
	} `yaml:"source"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var c Config
	c.DefaultMode = "status"
	c.DefaultLanguage = "en"
	c.Languages = []string{"en", "ru"}
	c.Source.URL = "pmtiles:///tiles/atlas.pmtiles"
	c.Source.TerrainURL = "pmtiles:///tiles/terrain.pmtiles"
	return c
}

// Load reads the configuration file, filling defaults for absent fields. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %q: %w", path, err)
	}
	if len(c.Languages) == 0 {
		c.Languages = Default().Languages
	}
	if !slices.Contains(c.Languages, c.DefaultLanguage) {
		return c, fmt.Errorf("default language %q not in languages %v", c.DefaultLanguage, c.Languages)
	}
	return c, nil
}

// StyleURL resolves the style document URL for a style family and language.
// Style documents are served from the data dir under /styles/.
func (c Config) StyleURL(styleKey, lang string) string {
	if !slices.Contains(c.Languages, lang) {
		lang = c.DefaultLanguage
	}
	return fmt.Sprintf("/styles/%s-%s.json", styleKey, lang)
}
