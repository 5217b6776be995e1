package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if !strings.Contains(c.URLTemplate, "{ID}") {
		errs = append(errs, fmt.Errorf("url_template %q must contain the {ID} placeholder", c.URLTemplate))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout))
	}
	switch c.OutputFormat {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be one of auto, text, json, got %q", c.OutputFormat))
	}
	if c.Tracer.Binary == "" {
		errs = append(errs, errors.New("tracer.binary is required"))
	}
	if len(c.Tracer.BuildCommand) == 0 {
		errs = append(errs, errors.New("tracer.build_command is required"))
	}
	if c.Extract.Record == "" || c.Extract.Atom == "" {
		errs = append(errs, errors.New("extract.record and extract.atom must not be empty"))
	}

	return errors.Join(errs...)
}

// HistoryEnabled reports whether runs are recorded in the state database.
func (c *Config) HistoryEnabled() bool {
	return c.StatePath != ""
}
