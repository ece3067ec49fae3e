package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the shared directory configuration.
type Paths struct {
	// BaseDir anchors relative pipeline directories.
	BaseDir  string `toml:"base_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	// TextfileDir receives one docmatch_<pipeline>.prom file per run. Empty
	// disables the export.
	TextfileDir string `toml:"textfile_dir"`
}

// Notifications configures ntfy pushes for runs that need manual review.
type Notifications struct {
	// NtfyTopic is the full topic URL, for example https://ntfy.sh/docmatch.
	// Empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Preflight contains the checks run before a pipeline writes anything.
type Preflight struct {
	MinFreeMiB int `toml:"min_free_mib"`
}

// Weights overrides individual scoring weights. Unset fields keep the preset
// for the pipeline's date policy.
type Weights struct {
	DateMatch           *int `toml:"date_match"`
	DateSingleSided     *int `toml:"date_single_sided"`
	DateMismatchPenalty *int `toml:"date_mismatch_penalty"`
	Amount              *int `toml:"amount"`
	Code                *int `toml:"code"`
	Name                *int `toml:"name"`
	OtherNumber         *int `toml:"other_number"`
}

// Extraction tunes name detection.
type Extraction struct {
	Stopwords    []string `toml:"stopwords"`
	PrefixTokens []string `toml:"prefix_tokens"`
}

// Pipeline describes one reconciliation: where primaries and supports are
// read from, where merged pairs and orphans are written, and how pairs are
// scored.
type Pipeline struct {
	PrimaryDir      string     `toml:"primary_dir"`
	SupportDir      string     `toml:"support_dir"`
	CombinedDir     string     `toml:"combined_dir"`
	HoldingDir      string     `toml:"holding_dir"`
	Extensions      []string   `toml:"extensions"`
	BodyTextSuffix  string     `toml:"body_text_suffix"`
	DatePolicy      string     `toml:"date_policy"`
	MinScore        *int       `toml:"min_score"`
	Strategy        string     `toml:"strategy"`
	MergedMarker    string     `toml:"merged_marker"`
	OrphanCollision string     `toml:"orphan_collision"`
	Weights         Weights    `toml:"weights"`
	Extraction      Extraction `toml:"extraction"`
}

// Config encapsulates all configuration values for docmatch.
//
// Configuration sections:
//   - Paths: base, state and log directories
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy pushes for runs that need review
//   - Preflight: free space requirement for output filesystems
//   - Pipelines: named reconciliation pipelines
type Config struct {
	Paths         Paths               `toml:"paths"`
	Logging       Logging             `toml:"logging"`
	Metrics       Metrics             `toml:"metrics"`
	Notifications Notifications       `toml:"notifications"`
	Preflight     Preflight           `toml:"preflight"`
	Pipelines     map[string]Pipeline `toml:"pipelines"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. When the file declares any pipeline,
// only the declared pipelines are used.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		var fileCfg Config
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&fileCfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		cfg.merge(fileCfg)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// merge overlays the values set in a decoded file onto the defaults.
func (c *Config) merge(file Config) {
	if file.Paths.BaseDir != "" {
		c.Paths.BaseDir = file.Paths.BaseDir
	}
	if file.Paths.StateDir != "" {
		c.Paths.StateDir = file.Paths.StateDir
	}
	if file.Paths.LogDir != "" {
		c.Paths.LogDir = file.Paths.LogDir
	}
	if file.Logging.Format != "" {
		c.Logging.Format = file.Logging.Format
	}
	if file.Logging.Level != "" {
		c.Logging.Level = file.Logging.Level
	}
	if file.Metrics.TextfileDir != "" {
		c.Metrics.TextfileDir = file.Metrics.TextfileDir
	}
	if file.Notifications.NtfyTopic != "" {
		c.Notifications.NtfyTopic = file.Notifications.NtfyTopic
	}
	if file.Notifications.RequestTimeout != 0 {
		c.Notifications.RequestTimeout = file.Notifications.RequestTimeout
	}
	if file.Preflight.MinFreeMiB != 0 {
		c.Preflight.MinFreeMiB = file.Preflight.MinFreeMiB
	}
	if len(file.Pipelines) > 0 {
		defaults := c.Pipelines
		c.Pipelines = make(map[string]Pipeline, len(file.Pipelines))
		for name, p := range file.Pipelines {
			c.Pipelines[name] = defaults[name].overlay(p)
		}
	}
}

// overlay returns p with every field set in o replacing its counterpart.
func (p Pipeline) overlay(o Pipeline) Pipeline {
	setString := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setString(&p.PrimaryDir, o.PrimaryDir)
	setString(&p.SupportDir, o.SupportDir)
	setString(&p.CombinedDir, o.CombinedDir)
	setString(&p.HoldingDir, o.HoldingDir)
	setString(&p.BodyTextSuffix, o.BodyTextSuffix)
	setString(&p.DatePolicy, o.DatePolicy)
	setString(&p.Strategy, o.Strategy)
	setString(&p.MergedMarker, o.MergedMarker)
	setString(&p.OrphanCollision, o.OrphanCollision)
	if len(o.Extensions) > 0 {
		p.Extensions = o.Extensions
	}
	if o.MinScore != nil {
		p.MinScore = o.MinScore
	}
	for _, w := range []struct{ dst, src **int }{
		{&p.Weights.DateMatch, &o.Weights.DateMatch},
		{&p.Weights.DateSingleSided, &o.Weights.DateSingleSided},
		{&p.Weights.DateMismatchPenalty, &o.Weights.DateMismatchPenalty},
		{&p.Weights.Amount, &o.Weights.Amount},
		{&p.Weights.Code, &o.Weights.Code},
		{&p.Weights.Name, &o.Weights.Name},
		{&p.Weights.OtherNumber, &o.Weights.OtherNumber},
	} {
		if *w.src != nil {
			*w.dst = *w.src
		}
	}
	if len(o.Extraction.Stopwords) > 0 {
		p.Extraction.Stopwords = o.Extraction.Stopwords
	}
	if len(o.Extraction.PrefixTokens) > 0 {
		p.Extraction.PrefixTokens = o.Extraction.PrefixTokens
	}
	return p
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// PipelineNames returns the configured pipeline names in sorted order.
func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline returns the named pipeline.
func (c *Config) Pipeline(name string) (Pipeline, error) {
	p, ok := c.Pipelines[name]
	if !ok {
		return Pipeline{}, fmt.Errorf("unknown pipeline %q (configured: %s)", name, strings.Join(c.PipelineNames(), ", "))
	}
	return p, nil
}

// LedgerPath returns the SQLite run history location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// resolveUnder expands pathValue, joining it to base when it is relative.
func resolveUnder(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if !strings.HasPrefix(pathValue, "~") && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
