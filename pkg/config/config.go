// Package config resolves distill settings from flags, environment and an optional config file
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poltergeist/distill/pkg/distill"
	"github.com/poltergeist/distill/pkg/paths"
	"github.com/poltergeist/distill/pkg/platform"
	"github.com/spf13/viper"
)

// Setting keys, shared with the CLI flag names
const (
	KeySource        = "source"
	KeyDest          = "dest"
	KeySymbols       = "symbols"
	KeyTimestamp     = "timestamp"
	KeyPlatforms     = "platforms"
	KeyAllowNoRedist = "allow-noredist"
	KeyExtraPlatform = "extra-platforms"
	KeyVerbosity     = "verbosity"
	KeyLogFile       = "log-file"
)

// ErrOverlappingRoots is returned when a destination root and the source root nest
var ErrOverlappingRoots = errors.New("destination overlaps source")

// EnvPrefix prefixes every environment override, e.g. DISTILL_SOURCE
const EnvPrefix = "DISTILL"

// Settings is the resolved configuration of one distill invocation
type Settings struct {
	SourceRoot    string   `mapstructure:"source"`
	DestRoot      string   `mapstructure:"dest"`
	SymbolsRoot   string   `mapstructure:"symbols"`
	Timestamp     string   `mapstructure:"timestamp"`
	Platforms     []string `mapstructure:"platforms"`
	AllowNoRedist bool     `mapstructure:"allow-noredist"`
	// ExtraPlatforms registers additional platforms with their debug extensions.
	ExtraPlatforms map[string][]string `mapstructure:"extra-platforms"`
	Verbosity      string              `mapstructure:"verbosity"`
	LogFile        string              `mapstructure:"log-file"`
}

// NewViper creates a viper instance that reads DISTILL_* variables and
// configFile, or distill.{yaml,json,toml} from searchDir when configFile is empty
func NewViper(configFile, searchDir string) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows about.
	for _, key := range []string{KeySource, KeyDest, KeySymbols, KeyTimestamp, KeyPlatforms, KeyAllowNoRedist, KeyVerbosity, KeyLogFile} {
		_ = v.BindEnv(key)
	}

	v.SetDefault(KeyVerbosity, "info")
	v.SetDefault(KeyAllowNoRedist, false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if searchDir == "" {
			searchDir = "."
		}
		v.AddConfigPath(searchDir)
		v.SetConfigName("distill")
	}

	return v
}

// ReadConfig reads the config file if one exists.
// A missing file is only an error when it was named explicitly.
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load unmarshals settings from v
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.Platforms = splitList(s.Platforms)
	return &s, nil
}

// Validate checks that the settings describe a usable session
func (s *Settings) Validate() error {
	if s.SourceRoot == "" {
		return fmt.Errorf("missing source root (--%s or %s_SOURCE)", KeySource, EnvPrefix)
	}
	if s.DestRoot == "" {
		return fmt.Errorf("missing destination root (--%s or %s_DEST)", KeyDest, EnvPrefix)
	}
	if _, err := s.ParseTimestamp(); err != nil {
		return err
	}
	if _, err := s.Registry().Resolve(s.Platforms); err != nil {
		return err
	}
	return nil
}

// CheckDisjointRoots fails when the destination or symbols root equals,
// contains or sits inside the source root. Commands that clear destination
// roots must call it first.
func (s *Settings) CheckDisjointRoots() error {
	source, err := filepath.Abs(s.SourceRoot)
	if err != nil {
		return fmt.Errorf("invalid source root %q: %w", s.SourceRoot, err)
	}

	for _, root := range []string{s.DestRoot, s.SymbolsRoot} {
		if strings.TrimSpace(root) == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("invalid root %q: %w", root, err)
		}
		if paths.HasBase(abs, source) || paths.HasBase(source, abs) {
			return fmt.Errorf("%w: %s and %s", ErrOverlappingRoots, abs, source)
		}
	}
	return nil
}

// ParseTimestamp accepts RFC3339 or Unix seconds; empty means the Unix epoch
func (s *Settings) ParseTimestamp() (time.Time, error) {
	raw := strings.TrimSpace(s.Timestamp)
	if raw == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC3339 or Unix seconds", raw)
	}
	return ts.UTC(), nil
}

// Registry returns the default registry extended with ExtraPlatforms
func (s *Settings) Registry() *platform.Registry {
	registry := platform.DefaultRegistry()

	names := make([]string, 0, len(s.ExtraPlatforms))
	for name := range s.ExtraPlatforms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		registry.Register(platform.WithExtensions(name, s.ExtraPlatforms[name]...))
	}
	return registry
}

// Options converts the settings into engine options
func (s *Settings) Options() (distill.Options, error) {
	if err := s.Validate(); err != nil {
		return distill.Options{}, err
	}
	ts, err := s.ParseTimestamp()
	if err != nil {
		return distill.Options{}, err
	}
	return distill.Options{
		SourceRoot:      s.SourceRoot,
		DestRoot:        s.DestRoot,
		DestSymbolsRoot: s.SymbolsRoot,
		Timestamp:       ts,
		LegalPlatforms:  s.Platforms,
		AllowNoRedist:   s.AllowNoRedist,
		Registry:        s.Registry(),
	}, nil
}

// splitList flattens comma separated entries coming from env variables
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
