package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kk-code-lab/spanmark/internal/markup"
)

const (
	envConfigPath = "SPANMARK_CONFIG"
	envTagPrefix  = "SPANMARK_TAG_PREFIX"
	envColor      = "SPANMARK_COLOR"
)

// Config holds the user-facing markup settings. The anchoring code never
// reads it; it only shapes the rewrite step.
type Config struct {
	Colors       map[string]string `json:"colors"`
	DefaultColor string            `json:"default_color"`
	DefaultMode  string            `json:"default_mode"`
	TagPrefix    string            `json:"tag_prefix"`
	DefaultTags  []string          `json:"default_tags"`
	MarkTemplate string            `json:"mark_template"`
}

// Default returns the built-in palette and markup settings.
func Default() Config {
	return Config{
		Colors: map[string]string{
			"yellow": "#FFF3A3A6",
			"red":    "#FF5582A6",
			"green":  "#BBFABBA6",
			"blue":   "#ADCCFFA6",
			"purple": "#D2B3FFA6",
		},
		DefaultColor: "yellow",
		DefaultMode:  string(markup.ModeHighlight),
		TagPrefix:    "#",
		MarkTemplate: markup.DefaultMarkTemplate,
	}
}

// DefaultPath picks the settings file: SPANMARK_CONFIG if set, otherwise
// spanmark/config.json under the user config directory.
func DefaultPath(getenv func(string) string, userConfigDir func() (string, error)) string {
	if p := strings.TrimSpace(getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := userConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "spanmark", "config.json")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path means DefaultPath.
func Load(path string) (Config, error) {
	return load(path, os.Getenv, os.UserConfigDir)
}

func load(path string, getenv func(string) string, userConfigDir func() (string, error)) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath(getenv, userConfigDir)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var file Config
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&file); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
			cfg.merge(file)
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		default:
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if v, ok := lookup(getenv, envTagPrefix); ok {
		cfg.TagPrefix = v
	}
	if v, ok := lookup(getenv, envColor); ok && v != "" {
		cfg.DefaultColor = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	return strings.TrimSpace(v), v != ""
}

func (c *Config) merge(file Config) {
	for name, value := range file.Colors {
		c.Colors[strings.ToLower(name)] = value
	}
	if file.DefaultColor != "" {
		c.DefaultColor = file.DefaultColor
	}
	if file.DefaultMode != "" {
		c.DefaultMode = file.DefaultMode
	}
	if file.TagPrefix != "" {
		c.TagPrefix = file.TagPrefix
	}
	if file.DefaultTags != nil {
		c.DefaultTags = file.DefaultTags
	}
	if file.MarkTemplate != "" {
		c.MarkTemplate = file.MarkTemplate
	}
}

// Validate checks the settings that would otherwise fail at rewrite time.
func (c Config) Validate() error {
	if strings.Count(c.MarkTemplate, "%s") != 1 || strings.Count(c.MarkTemplate, "%") != 1 {
		return fmt.Errorf("mark_template must contain exactly one %%s, got %q", c.MarkTemplate)
	}
	if _, err := markup.ParseMode(c.DefaultMode); err != nil {
		return err
	}
	return nil
}

// ColorNames lists the palette names in sorted order.
func (c Config) ColorNames() []string {
	names := make([]string, 0, len(c.Colors))
	for name := range c.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveColor maps a palette name to its value. Anything that is not a
// palette name is taken as a literal CSS colour.
func (c Config) ResolveColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		color = c.DefaultColor
	}
	if value, ok := c.Colors[strings.ToLower(color)]; ok {
		return value
	}
	return color
}

// MarkupOptions builds the rewrite options for one call. Empty mode and a
// nil tag list fall back to the configured defaults.
func (c Config) MarkupOptions(mode string, color string, tags []string) (markup.Options, error) {
	if strings.TrimSpace(mode) == "" {
		mode = c.DefaultMode
	}
	m, err := markup.ParseMode(mode)
	if err != nil {
		return markup.Options{}, err
	}
	if tags == nil {
		tags = c.DefaultTags
	}
	opts := markup.Options{
		Mode:         m,
		MarkTemplate: c.MarkTemplate,
		Tags:         tags,
		TagPrefix:    c.TagPrefix,
	}
	if m == markup.ModeColor {
		opts.Color = c.ResolveColor(color)
	}
	return opts, nil
}
