// Package config loads assembler configuration from TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the assembler configuration
type Config struct {
	// Assembler settings
	Assembler struct {
		KeepPseudoinstructions bool `toml:"keep_pseudoinstructions"`
		BatchErrors            bool `toml:"batch_errors"`
	} `toml:"assembler"`

	// Segment base addresses as hex strings, e.g. "0x04000000"
	Segments struct {
		TextBase  string `toml:"text_base"`
		DataBase  string `toml:"data_base"`
		KTextBase string `toml:"ktext_base"`
		KDataBase string `toml:"kdata_base"`
	} `toml:"segments"`

	// Listing output settings
	Listing struct {
		ShowAddresses bool   `toml:"show_addresses"`
		ShowEncoding  bool   `toml:"show_encoding"`
		NumberFormat  string `toml:"number_format"` // hex, dec
	} `toml:"listing"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.KeepPseudoinstructions = false
	cfg.Assembler.BatchErrors = true

	cfg.Segments.TextBase = "0x04000000"
	cfg.Segments.DataBase = "0x10000000"
	cfg.Segments.KTextBase = "0x80000000"
	cfg.Segments.KDataBase = "0x90000000"

	cfg.Listing.ShowAddresses = true
	cfg.Listing.ShowEncoding = true
	cfg.Listing.NumberFormat = "hex"

	return cfg
}

// LoadConfig loads configuration from a TOML file, applying defaults for
// any missing values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations:
// the working directory, then the user's config directory.
func FindConfigFile() string {
	candidates := []string{"neomips.toml", ".neomips.toml"}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(dir, "neomips", "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	for _, field := range []struct {
		name, value string
	}{
		{"text_base", c.Segments.TextBase},
		{"data_base", c.Segments.DataBase},
		{"ktext_base", c.Segments.KTextBase},
		{"kdata_base", c.Segments.KDataBase},
	} {
		addr, err := parseAddress(field.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
		if addr%4 != 0 {
			return fmt.Errorf("invalid %s: 0x%08X is not 4-byte aligned", field.name, addr)
		}
	}

	switch c.Listing.NumberFormat {
	case "hex", "dec":
	default:
		return fmt.Errorf("invalid number_format %q (want hex or dec)", c.Listing.NumberFormat)
	}

	return nil
}

// SegmentBases returns the configured base addresses in text, data, ktext,
// kdata order. Validate must have accepted the configuration first.
func (c *Config) SegmentBases() (text, data, ktext, kdata uint32) {
	text, _ = parseAddress(c.Segments.TextBase)
	data, _ = parseAddress(c.Segments.DataBase)
	ktext, _ = parseAddress(c.Segments.KTextBase)
	kdata, _ = parseAddress(c.Segments.KDataBase)
	return
}

func parseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}
