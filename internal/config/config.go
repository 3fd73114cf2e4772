// Package config provides configuration management for stitch using Viper
// for loading from .stitch.yml, STITCH_ environment variables and
// command-line flags.
//
// The configuration names the ordered shared fragment list, the variants
// directory, the output directory and naming, the version manifest and the
// static header text.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/stitch/internal/assembler"
	"github.com/conneroisu/stitch/internal/errors"
)

type Config struct {
	Source    SourceConfig   `mapstructure:"source" yaml:"source"`
	Output    OutputConfig   `mapstructure:"output" yaml:"output"`
	Extension string         `mapstructure:"extension" yaml:"extension"`
	Manifest  ManifestConfig `mapstructure:"manifest" yaml:"manifest"`
	Header    HeaderConfig   `mapstructure:"header" yaml:"header"`
	Build     BuildConfig    `mapstructure:"build" yaml:"build"`
}

type SourceConfig struct {
	Root        string   `mapstructure:"root" yaml:"root"`
	Shared      []string `mapstructure:"shared" yaml:"shared"`
	VariantsDir string   `mapstructure:"variants_dir" yaml:"variants_dir"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
}

type ManifestConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	VersionKey string `mapstructure:"version_key" yaml:"version_key"`
}

// HeaderConfig is the static header text. An empty SharedGlob is derived from
// the first shared fragment's directory plus the extension, e.g. src/common/*.gs.
type HeaderConfig struct {
	Description  string `mapstructure:"description" yaml:"description"`
	SharedGlob   string `mapstructure:"shared_glob" yaml:"shared_glob,omitempty"`
	BuildCommand string `mapstructure:"build_command" yaml:"build_command"`
	Target       string `mapstructure:"target" yaml:"target"`
}

type BuildConfig struct {
	KeepGoing bool   `mapstructure:"keep_going" yaml:"keep_going"`
	Report    string `mapstructure:"report" yaml:"report"`
}

// DefaultSharedFragments is the stock shared fragment order. Later files use
// helpers defined by earlier ones.
func DefaultSharedFragments() []string {
	names := []string{
		"utilities.gs",
		"formatting.gs",
		"dataValidation.gs",
		"conditionalFormatting.gs",
		"sheetBuilders.gs",
		"namedRanges.gs",
		"errorHandling.gs",
		"testing.gs",
		"configBuilder.gs",
		"sampleData.gs",
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.ToSlash(filepath.Join("src", "common", n))
	}
	return paths
}

// Default returns the configuration used when no file or flag overrides it.
func Default() *Config {
	header := assembler.DefaultHeaderInfo()
	return &Config{
		Source: SourceConfig{
			Root:        "src",
			Shared:      DefaultSharedFragments(),
			VariantsDir: "src/workbooks",
		},
		Output: OutputConfig{
			Dir:    "dist",
			Suffix: "_standalone",
		},
		Extension: ".gs",
		Manifest: ManifestConfig{
			Path:       "package.json",
			VersionKey: "version",
		},
		Header: HeaderConfig{
			Description:  header.Description,
			BuildCommand: header.BuildCommand,
			Target:       header.Target,
		},
		Build: BuildConfig{
			Report: "text",
		},
	}
}

// SetDefaults registers Default() with v so that env vars and IsSet work for
// every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source.root", d.Source.Root)
	v.SetDefault("source.shared", d.Source.Shared)
	v.SetDefault("source.variants_dir", d.Source.VariantsDir)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.suffix", d.Output.Suffix)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("manifest.path", d.Manifest.Path)
	v.SetDefault("manifest.version_key", d.Manifest.VersionKey)
	v.SetDefault("header.description", d.Header.Description)
	v.SetDefault("header.shared_glob", d.Header.SharedGlob)
	v.SetDefault("header.build_command", d.Header.BuildCommand)
	v.SetDefault("header.target", d.Header.Target)
	v.SetDefault("build.keep_going", d.Build.KeepGoing)
	v.SetDefault("build.report", d.Build.Report)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, fills unset values from Default
// and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	// Handle shared list set via viper (workaround for viper slice handling)
	if v.IsSet("source.shared") && len(config.Source.Shared) == 0 {
		config.Source.Shared = v.GetStringSlice("source.shared")
	}

	applyDefaults(&config)

	// An explicitly empty suffix is allowed; only an unset one gets the default.
	if !v.IsSet("output.suffix") {
		config.Output.Suffix = Default().Output.Suffix
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	d := Default()
	if config.Source.Root == "" {
		config.Source.Root = d.Source.Root
	}
	if config.Source.Shared == nil {
		config.Source.Shared = d.Source.Shared
	}
	if config.Source.VariantsDir == "" {
		config.Source.VariantsDir = d.Source.VariantsDir
	}
	if config.Output.Dir == "" {
		config.Output.Dir = d.Output.Dir
	}
	if config.Extension == "" {
		config.Extension = d.Extension
	}
	if config.Manifest.Path == "" {
		config.Manifest.Path = d.Manifest.Path
	}
	if config.Manifest.VersionKey == "" {
		config.Manifest.VersionKey = d.Manifest.VersionKey
	}
	if config.Header.Description == "" {
		config.Header.Description = d.Header.Description
	}
	if config.Header.BuildCommand == "" {
		config.Header.BuildCommand = d.Header.BuildCommand
	}
	if config.Header.Target == "" {
		config.Header.Target = d.Header.Target
	}
	if config.Build.Report == "" {
		config.Build.Report = d.Build.Report
	}
}

// Naming returns the variant naming rules.
func (c *Config) Naming() assembler.Naming {
	return assembler.Naming{Extension: c.Extension, Suffix: c.Output.Suffix}
}

// HeaderInfo returns the static header text.
func (c *Config) HeaderInfo() assembler.HeaderInfo {
	root := c.Source.Root
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return assembler.HeaderInfo{
		Description:  c.Header.Description,
		SharedGlob:   c.sharedGlob(),
		SourceRoot:   root,
		BuildCommand: c.Header.BuildCommand,
		Target:       c.Header.Target,
	}
}

func (c *Config) sharedGlob() string {
	if c.Header.SharedGlob != "" || len(c.Source.Shared) == 0 {
		return c.Header.SharedGlob
	}
	dir := path.Dir(filepath.ToSlash(c.Source.Shared[0]))
	if dir == "." {
		return "*" + c.Extension
	}
	return dir + "/*" + c.Extension
}

// Policy returns the failure policy selected by build.keep_going.
func (c *Config) Policy() assembler.FailurePolicy {
	if c.Build.KeepGoing {
		return assembler.ContinueOnError
	}
	return assembler.AbortRemaining
}

// Job builds the assembler job for one run.
func (c *Config) Job(meta assembler.BuildMetadata) assembler.Job {
	return assembler.Job{
		Fragments:   append(assembler.FragmentList(nil), c.Source.Shared...),
		VariantsDir: c.Source.VariantsDir,
		OutputDir:   c.Output.Dir,
		Naming:      c.Naming(),
		Metadata:    meta,
		Header:      c.HeaderInfo(),
	}
}

// WatchDirs returns the directories whose changes require a rebuild.
func (c *Config) WatchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, f := range c.Source.Shared {
		add(filepath.Dir(f))
	}
	add(c.Source.VariantsDir)
	return dirs
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateSourceConfig(&config.Source); err != nil {
		return err
	}

	if err := validateNaming(config.Extension, config.Output.Suffix); err != nil {
		return err
	}

	if err := validateOutputConfig(&config.Output, &config.Source); err != nil {
		return err
	}

	switch config.Build.Report {
	case "text", "json", "yaml":
	default:
		return invalid("build.report", config.Build.Report, "must be one of text, json, yaml")
	}

	return nil
}

func validateSourceConfig(config *SourceConfig) error {
	if len(config.Shared) == 0 {
		return errors.ErrFragmentListEmpty()
	}
	for i, path := range config.Shared {
		if err := validatePath(path); err != nil {
			return invalid(fmt.Sprintf("source.shared[%d]", i), path, err.Error())
		}
	}
	if err := validatePath(config.VariantsDir); err != nil {
		return invalid("source.variants_dir", config.VariantsDir, err.Error())
	}
	return nil
}

func validateNaming(ext, suffix string) error {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return invalid("extension", ext, "must start with a dot, e.g. .gs")
	}
	if strings.ContainsAny(ext[1:], `./\`) {
		return invalid("extension", ext, "must be a single extension")
	}
	if strings.ContainsAny(suffix, `/\`) {
		return invalid("output.suffix", suffix, "must not contain path separators")
	}
	return nil
}

// validateOutputConfig keeps generated files out of the source tree.
func validateOutputConfig(out *OutputConfig, src *SourceConfig) error {
	if err := validatePath(out.Dir); err != nil {
		return invalid("output.dir", out.Dir, err.Error())
	}

	cleanPath := filepath.Clean(out.Dir)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return invalid("output.dir", out.Dir, "contains path traversal")
		}
	}
	if cleanPath == filepath.Clean(src.VariantsDir) {
		return invalid("output.dir", out.Dir, "must differ from source.variants_dir")
	}
	return nil
}

// validatePath validates a configured file path
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}
	return nil
}

func invalid(field string, value interface{}, message string) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid %s: %s", field, message)).
		WithContext("field", field).
		WithContext("value", value)
}
