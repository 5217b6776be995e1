package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// EnvPrefix is the prefix of environment variables read by the loader.
const EnvPrefix = "CATRACE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"catrace.yaml", "catrace.yml"}

// nestedSections are config sections whose keys are addressed as
// CATRACE_<SECTION>_<KEY> in the environment.
var nestedSections = []string{"tracer", "extract"}

// flagKeys maps flag names whose config key is not the snake_case spelling
// of the flag.
var flagKeys = map[string]string{
	"state":       "state_path",
	"keep":        "keep_artifact",
	"project-dir": "tracer.project_dir",
	"binary":      "tracer.binary",
}

// pathFlags maps path-valued config keys to the flag that can set them.
var pathFlags = map[string]string{
	"work_dir":           "work-dir",
	"state_path":         "state",
	"tracer.project_dir": "project-dir",
	"tracer.binary":      "binary",
}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFileUpward searches upward from startDir for a catrace config file.
func findConfigFileUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > catrace.yaml/catrace.yml in CWD or any parent.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigFileUpward(cwd)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey transforms CATRACE_TRACER_PROJECT_DIR -> tracer.project_dir.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range nestedSections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	// Transform kebab-case to snake_case for config keys
	return strings.ReplaceAll(name, "-", "_")
}

// Load loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// Relative paths from the config file are resolved against the directory of
// that file. Relative paths given as flags are resolved against the current
// working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"url_template":         d.URLTemplate,
		"work_dir":             d.WorkDir,
		"http_timeout":         d.HTTPTimeout.String(),
		"chunk_size":           d.ChunkSize,
		"state_path":           d.StatePath,
		"keep_artifact":        d.KeepArtifact,
		"verbose":              d.Verbose,
		"output":               d.OutputFormat,
		"tracer.project_dir":   d.Tracer.ProjectDir,
		"tracer.binary":        d.Tracer.Binary,
		"tracer.build_command": d.Tracer.BuildCommand,
		"extract.record":       d.Extract.Record,
		"extract.atom":         d.Extract.Atom,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFile := findConfigFile(cfgFile)
	fileK := koanf.New(".")
	if configFile != "" {
		if err := fileK.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		if err := k.Merge(fileK); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", configFile, err)
		}
	}

	// 3. Load environment variables (CATRACE_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct. Durations and whitespace-separated
	// commands may arrive as plain strings from YAML or the environment.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(" "),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = configFile
	cfg.Tracer.BuildCommand = compact(cfg.Tracer.BuildCommand)

	// 6. Expand ${VAR} references and resolve relative paths
	cfg.URLTemplate = expandEnvVars(cfg.URLTemplate)
	baseDir := ""
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}
	for key, target := range map[string]*string{
		"work_dir":           &cfg.WorkDir,
		"state_path":         &cfg.StatePath,
		"tracer.project_dir": &cfg.Tracer.ProjectDir,
		"tracer.binary":      &cfg.Tracer.Binary,
	} {
		fromFile := fileK.Exists(key) && fileK.String(key) == *target
		if flags != nil && flags.Changed(pathFlags[key]) {
			fromFile = false
		}
		*target = expandEnvVars(*target)
		if fromFile {
			*target = resolvePathRelativeTo(*target, baseDir)
		}
	}

	return &cfg, nil
}

// compact drops empty argv elements left by string splitting.
func compact(args []string) []string {
	out := args[:0]
	for _, a := range args {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// FromContext retrieves the config from the command context, falling back
// to the defaults.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return Defaults()
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger: text records on w, debug level when
// verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR}
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}
