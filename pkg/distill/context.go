// Package distill copies a filtered, platform-legal subset of a source tree
// into a destination tree.
//
// A Context is built once per session and never changes afterwards. An
// Engine binds a Context to a filesystem collaborator and a logging sink and
// answers Distill and CopyFileToDest requests synchronously. Nothing is
// retained between calls; a failed call leaves already copied files in place.
package distill

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poltergeist/distill/pkg/platform"
	"github.com/poltergeist/distill/pkg/rules"
	"github.com/poltergeist/distill/pkg/symbols"
)

// Options configures a distillation session
type Options struct {
	SourceRoot string
	DestRoot   string
	// DestSymbolsRoot enables symbol routing when set.
	DestSymbolsRoot string
	// Timestamp is stamped on every copied file. Zero means the Unix epoch.
	Timestamp time.Time
	// LegalPlatforms defaults to every platform in Registry.
	LegalPlatforms []string
	AllowNoRedist  bool
	// Registry defaults to platform.DefaultRegistry().
	Registry *platform.Registry
}

// Context is the immutable per-session configuration
type Context struct {
	id              string
	sourceRoot      string
	destRoot        string
	destSymbolsRoot string
	timestamp       time.Time
	legalPlatforms  []string
	allowNoRedist   bool
	registry        *platform.Registry
	rules           *rules.RejectRuleSet
	classifier      *symbols.Classifier
}

// NewContext validates opts and derives the session's reject rules
func NewContext(opts Options) (*Context, error) {
	const op = "new context"

	if strings.TrimSpace(opts.SourceRoot) == "" {
		return nil, opError(op, fmt.Errorf("%w: source root is required", ErrInvalidArgument))
	}
	if strings.TrimSpace(opts.DestRoot) == "" {
		return nil, opError(op, fmt.Errorf("%w: destination root is required", ErrInvalidArgument))
	}

	registry := opts.Registry
	if registry == nil {
		registry = platform.DefaultRegistry()
	}

	legal := registry.Names()
	if len(opts.LegalPlatforms) > 0 {
		resolved, err := registry.Resolve(opts.LegalPlatforms)
		if err != nil {
			return nil, opError(op, fmt.Errorf("%w: %v", ErrInvalidArgument, err))
		}
		legal = resolved
	}

	sourceRoot, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return nil, opError(op, err, opts.SourceRoot)
	}
	destRoot, err := filepath.Abs(opts.DestRoot)
	if err != nil {
		return nil, opError(op, err, opts.DestRoot)
	}
	destSymbolsRoot := ""
	if strings.TrimSpace(opts.DestSymbolsRoot) != "" {
		destSymbolsRoot, err = filepath.Abs(opts.DestSymbolsRoot)
		if err != nil {
			return nil, opError(op, err, opts.DestSymbolsRoot)
		}
	}

	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Unix(0, 0).UTC()
	}

	return &Context{
		id:              uuid.NewString(),
		sourceRoot:      sourceRoot,
		destRoot:        destRoot,
		destSymbolsRoot: destSymbolsRoot,
		timestamp:       timestamp,
		legalPlatforms:  legal,
		allowNoRedist:   opts.AllowNoRedist,
		registry:        registry,
		rules:           rules.New(registry, legal, opts.AllowNoRedist),
		classifier:      symbols.NewClassifier(registry, legal),
	}, nil
}

// ID returns the session identifier used in log lines
func (c *Context) ID() string { return c.id }

// SourceRoot returns the absolute source root
func (c *Context) SourceRoot() string { return c.sourceRoot }

// DestRoot returns the absolute destination root
func (c *Context) DestRoot() string { return c.destRoot }

// DestSymbolsRoot returns the symbols root, or "" when routing is disabled
func (c *Context) DestSymbolsRoot() string { return c.destSymbolsRoot }

// Timestamp returns the time stamped on every copied file
func (c *Context) Timestamp() time.Time { return c.timestamp }

// AllowNoRedist reports whether NoRedist content may be distilled
func (c *Context) AllowNoRedist() bool { return c.allowNoRedist }

// Registry returns the platform registry of the session
func (c *Context) Registry() *platform.Registry { return c.registry }

// LegalPlatforms returns a copy of the legal platform identifiers
func (c *Context) LegalPlatforms() []string {
	out := make([]string, len(c.legalPlatforms))
	copy(out, c.legalPlatforms)
	return out
}

// Rules returns the session's reject rules
func (c *Context) Rules() *rules.RejectRuleSet { return c.rules }

// IsSymbolFile reports whether any legal platform treats path as a debug artifact
func (c *Context) IsSymbolFile(path string) bool {
	return c.classifier.IsSymbolFile(path)
}
