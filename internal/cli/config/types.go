// Package config provides configuration management for the catrace CLI.
//
// Values are layered with koanf: built-in defaults, then catrace.yaml,
// then CATRACE_* environment variables, then explicitly set flags.
package config

import (
	"time"

	"github.com/leapstack-labs/catrace/internal/fetch"
	"github.com/leapstack-labs/catrace/internal/pdb"
	"github.com/leapstack-labs/catrace/internal/tracer"
)

// TracerConfig locates the external ray tracer project and its binary.
type TracerConfig struct {
	ProjectDir   string   `koanf:"project_dir" yaml:"project_dir" json:"project_dir"`
	Binary       string   `koanf:"binary" yaml:"binary" json:"binary"`
	BuildCommand []string `koanf:"build_command" yaml:"build_command" json:"build_command"`
}

// ExtractConfig holds the markers selecting coordinate lines.
type ExtractConfig struct {
	Record string `koanf:"record" yaml:"record" json:"record"`
	Atom   string `koanf:"atom" yaml:"atom" json:"atom"`
}

// Config holds all CLI configuration options.
type Config struct {
	URLTemplate  string        `koanf:"url_template" yaml:"url_template" json:"url_template"`
	WorkDir      string        `koanf:"work_dir" yaml:"work_dir" json:"work_dir"`
	HTTPTimeout  time.Duration `koanf:"http_timeout" yaml:"http_timeout" json:"http_timeout"`
	ChunkSize    int           `koanf:"chunk_size" yaml:"chunk_size" json:"chunk_size"`
	StatePath    string        `koanf:"state_path" yaml:"state_path" json:"state_path"` // empty disables run history
	KeepArtifact bool          `koanf:"keep_artifact" yaml:"keep_artifact" json:"keep_artifact"`
	Verbose      bool          `koanf:"verbose" yaml:"verbose" json:"verbose"`
	OutputFormat string        `koanf:"output" yaml:"output" json:"output"`
	Tracer       TracerConfig  `koanf:"tracer" yaml:"tracer" json:"tracer"`
	Extract      ExtractConfig `koanf:"extract" yaml:"extract" json:"extract"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `koanf:"-" yaml:"-" json:"config_file,omitempty"`
}

// Default configuration values.
const (
	DefaultWorkDir   = ""
	DefaultStateFile = ".catrace/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=text without colour
)

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		URLTemplate:  pdb.DefaultURLTemplate,
		WorkDir:      DefaultWorkDir,
		ChunkSize:    fetch.DefaultChunkSize,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Tracer: TracerConfig{
			ProjectDir:   tracer.DefaultProjectDir,
			Binary:       tracer.DefaultBinary,
			BuildCommand: append([]string(nil), tracer.DefaultBuildCommand...),
		},
		Extract: ExtractConfig{
			Record: pdb.DefaultRecordMarker,
			Atom:   pdb.DefaultAtomNameMarker,
		},
	}
}
