// Package config loads rectify.toml.
//
// The file is optional and discovered by walking up from the working
// directory. Defaults are applied first, then the file, then command-line
// flags (in cmd/rectify).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"rectify/internal/apply"
	"rectify/internal/backup"
	"rectify/internal/docs"
	"rectify/internal/proposal"
)

// FileName is the name of the configuration file.
const FileName = "rectify.toml"

// Duration decodes "30s"-style strings.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	// Path is the file the configuration was read from; empty for defaults.
	Path string `toml:"-"`

	Project   Project   `toml:"project"`
	Generator Generator `toml:"generator"`
	Applier   Applier   `toml:"applier"`
	Backup    Backup    `toml:"backup"`
	Diagnoser Diagnoser `toml:"diagnoser"`
	Docs      Docs      `toml:"docs"`
	AI        AI        `toml:"ai"`
	Trace     Trace     `toml:"trace"`
}

type Project struct {
	// Root is relative to the configuration file.
	Root       string   `toml:"root"`
	BackupRoot string   `toml:"backup_root"`
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
}

type Generator struct {
	MaxProposals        int     `toml:"max_proposals"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MinConfidence       float64 `toml:"min_confidence"`
}

type Applier struct {
	CriticalPatterns []string `toml:"critical_patterns"`
	WarningFactor    float64  `toml:"warning_factor"`
	ScanTimeout      Duration `toml:"scan_timeout"`
	AllowReview      bool     `toml:"allow_review"`
	AllowUnsafe      bool     `toml:"allow_unsafe"`
	MaxIterations    int      `toml:"max_iterations"`
	Jobs             int      `toml:"jobs"`
}

type Backup struct {
	Keep       int    `toml:"keep"`
	ArchiveDir string `toml:"archive_dir"`
}

type Diagnoser struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout Duration `toml:"timeout"`
}

type Docs struct {
	CacheDir string   `toml:"cache_dir"`
	LRUSize  int      `toml:"lru_size"`
	MaxAge   Duration `toml:"max_age"`
}

type AI struct {
	Enabled bool     `toml:"enabled"`
	Model   string   `toml:"model"`
	Weight  float64  `toml:"weight"`
	Timeout Duration `toml:"timeout"`
}

type Trace struct {
	File   string `toml:"file"`
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration rooted at the current
// directory.
func Default() Config {
	return Config{
		Project: Project{
			Root:       ".",
			BackupRoot: backup.DefaultRoot,
			Include:    []string{"src/**/*.rs", "tests/**/*.rs", "examples/**/*.rs", "benches/**/*.rs", "build.rs"},
			Exclude:    []string{"target/**", backup.DefaultRoot + "/**"},
		},
		Generator: Generator{
			MaxProposals:        proposal.DefaultMaxProposals,
			SimilarityThreshold: proposal.DefaultThreshold,
			MinConfidence:       proposal.DefaultMinConfidence,
		},
		Applier: Applier{
			CriticalPatterns: append([]string(nil), apply.DefaultCriticalPatterns...),
			WarningFactor:    apply.DefaultWarningFactor,
			ScanTimeout:      Duration{5 * time.Minute},
			MaxIterations:    3,
		},
		Backup: Backup{Keep: 10},
		Diagnoser: Diagnoser{
			Command: "cargo",
			Args:    []string{"check", "--message-format=json", "--all-targets"},
		},
		Docs: Docs{LRUSize: docs.DefaultLRUSize, MaxAge: Duration{docs.DefaultMaxAge}},
		AI:   AI{Weight: 0.3, Timeout: Duration{20 * time.Second}},
		Trace: Trace{
			Level:  "off",
			Format: "text",
		},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("config: resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("config: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load reads path over the defaults. The project root is resolved against
// the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(filepath.Dir(path), cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest FileName above startDir, or returns the
// defaults rooted at startDir when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if ok {
		return Load(path)
	}
	cfg := Default()
	if startDir == "" {
		startDir = "."
	}
	root, err := filepath.Abs(startDir)
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve start directory: %w", err)
	}
	cfg.Project.Root = root
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	if c.Generator.MaxProposals <= 0 {
		errs = append(errs, errors.New("[generator].max_proposals must be positive"))
	}
	if t := c.Generator.SimilarityThreshold; t <= 0 || t >= 1 {
		errs = append(errs, errors.New("[generator].similarity_threshold must be in (0, 1)"))
	}
	if m := c.Generator.MinConfidence; m < 0 || m >= 1 {
		errs = append(errs, errors.New("[generator].min_confidence must be in [0, 1)"))
	}
	if c.Applier.WarningFactor < 1 {
		errs = append(errs, errors.New("[applier].warning_factor must be at least 1"))
	}
	if c.Applier.MaxIterations <= 0 {
		errs = append(errs, errors.New("[applier].max_iterations must be positive"))
	}
	if c.Applier.AllowUnsafe && !c.Applier.AllowReview {
		errs = append(errs, errors.New("[applier].allow_unsafe requires allow_review"))
	}
	if c.Backup.Keep < 0 {
		errs = append(errs, errors.New("[backup].keep must not be negative"))
	}
	if w := c.AI.Weight; w < 0 || w > 1 {
		errs = append(errs, errors.New("[ai].weight must be in [0, 1]"))
	}
	for _, pats := range [][]string{c.Project.Include, c.Project.Exclude} {
		for _, p := range pats {
			if !validPattern(p) {
				errs = append(errs, fmt.Errorf("[project]: bad glob %q", p))
			}
		}
	}
	return errors.Join(errs...)
}

// BackupDir returns the absolute backup root.
func (c Config) BackupDir() string {
	if filepath.IsAbs(c.Project.BackupRoot) {
		return c.Project.BackupRoot
	}
	return filepath.Join(c.Project.Root, c.Project.BackupRoot)
}
