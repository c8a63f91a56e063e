// Package config loads clonetrack settings from an optional config file,
// CLONETRACK_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/highbeam/clonetrack/internal/filekind"
	"github.com/highbeam/clonetrack/internal/lineage"
)

const (
	envPrefix  = "CLONETRACK"
	configName = "config.yaml"
)

// Config holds all clonetrack configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	DataDir      string `mapstructure:"data_dir"`
	DBPath       string `mapstructure:"db_path"`
	ReportDir    string `mapstructure:"report_dir"`
	ChangeLogDir string `mapstructure:"change_log_dir"`
	SocketPath   string `mapstructure:"socket_path"`

	// BasePath is the prefix detector reports put in front of
	// repository-relative paths, e.g. "systems/source".
	BasePath string `mapstructure:"base_path"`
	Branch   string `mapstructure:"branch"`

	MinRevision int `mapstructure:"min_revision"`
	// MaxRevision -1 means the last available revision.
	MaxRevision int `mapstructure:"max_revision"`

	AdjustMode          string `mapstructure:"adjust_mode"`
	MatchAcrossFiles    bool   `mapstructure:"match_across_files"`
	SplitOnReclaim      bool   `mapstructure:"split_on_reclaim"`
	AllowMissingReports bool   `mapstructure:"allow_missing_reports"`

	IgnorePatterns []string       `mapstructure:"ignore_patterns"`
	Detector       DetectorConfig `mapstructure:"detector"`
	Watch          WatchConfig    `mapstructure:"watch"`

	// FileKinds maps a kind name to globs that override the built-in file
	// kind rules, e.g. {"legacy": ["old/**"]}.
	FileKinds map[string][]string `mapstructure:"file_kinds"`
}

// DetectorConfig records how the clone reports were produced. It is stored
// with each run and not interpreted otherwise.
type DetectorConfig struct {
	Granularity string `mapstructure:"granularity"`
	Language    string `mapstructure:"language"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Validation errors.
var (
	ErrMissingPath       = errors.New("required path is empty")
	ErrInvalidMinRev     = errors.New("min_revision must be non-negative")
	ErrInvalidMaxRev     = errors.New("max_revision must be -1 or at least min_revision")
	ErrInvalidAdjustMode = errors.New("adjust_mode must be compat or corrected")
	ErrInvalidDebounce   = errors.New("watch.debounce must be positive")
	ErrInvalidFileKinds  = errors.New("file_kinds is invalid")
)

// DefaultDataDir returns the default data directory (~/.clonetrack).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".clonetrack")
}

// ConfigPath returns the default path to the config file.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), configName)
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("report_dir", "")
	v.SetDefault("change_log_dir", "")
	v.SetDefault("socket_path", "")
	v.SetDefault("base_path", "")
	v.SetDefault("branch", "")
	v.SetDefault("min_revision", 0)
	v.SetDefault("max_revision", -1)
	v.SetDefault("adjust_mode", lineage.ModeCompat.String())
	v.SetDefault("match_across_files", false)
	v.SetDefault("split_on_reclaim", false)
	v.SetDefault("allow_missing_reports", false)
	v.SetDefault("ignore_patterns", []string{".*", "*.swp", "*~", "*.tmp"})
	v.SetDefault("detector.granularity", "functions")
	v.SetDefault("detector.language", "")
	v.SetDefault("watch.debounce", 2*time.Second)
}

// Default returns a Config with defaults only, ignoring files and the
// environment.
func Default() *Config {
	v := viper.New()
	applyDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	cfg.derivePaths()
	return cfg
}

// Load reads configuration from path (YAML, TOML or JSON by extension),
// then applies CLONETRACK_* environment overrides, e.g.
// CLONETRACK_DETECTOR_LANGUAGE for detector.language. A missing file is
// fine; defaults are used. The result is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.derivePaths()
	return cfg, nil
}

// derivePaths fills paths left empty from DataDir.
func (c *Config) derivePaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "clones.db")
	}
	if c.ReportDir == "" {
		c.ReportDir = filepath.Join(c.DataDir, "reports")
	}
	if c.ChangeLogDir == "" {
		c.ChangeLogDir = filepath.Join(c.DataDir, "changes")
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "clonetrack.sock")
	}
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	paths := []struct{ key, value string }{
		{"db_path", c.DBPath},
		{"report_dir", c.ReportDir},
		{"change_log_dir", c.ChangeLogDir},
	}
	for _, p := range paths {
		if strings.TrimSpace(p.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingPath, p.key)
		}
	}
	if c.MinRevision < 0 {
		return ErrInvalidMinRev
	}
	if c.MaxRevision != -1 && c.MaxRevision < c.MinRevision {
		return ErrInvalidMaxRev
	}
	if _, err := lineage.ParseMode(c.AdjustMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAdjustMode, err)
	}
	if c.Watch.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	if _, err := filekind.NewClassifier(c.FileKinds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFileKinds, err)
	}
	return nil
}

// Classifier builds the file kind classifier from the built-in rules and
// file_kinds.
func (c *Config) Classifier() (*filekind.Classifier, error) {
	return filekind.NewClassifier(c.FileKinds)
}

// TrackerOptions translates the lineage settings into tracker options.
// The config must have passed Validate.
func (c *Config) TrackerOptions() []lineage.Option {
	mode, _ := lineage.ParseMode(c.AdjustMode)
	return []lineage.Option{
		lineage.WithMode(mode),
		lineage.WithBasePath(c.BasePath),
		lineage.WithCrossFileMatching(c.MatchAcrossFiles),
		lineage.WithSplitOnReclaim(c.SplitOnReclaim),
	}
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
