// Package symbols classifies debug-symbol artifacts by platform
package symbols

import (
	"path/filepath"
	"strings"

	"github.com/poltergeist/distill/pkg/platform"
)

// IsSymbolFile reports whether path carries one of p's debug extensions.
// Extensions may span several dots (".so.debug"), so the file name suffix is
// compared rather than filepath.Ext.
func IsSymbolFile(p platform.Platform, path string) bool {
	if p == nil {
		return false
	}

	name := strings.ToLower(filepath.Base(filepath.FromSlash(strings.TrimRight(path, `/\`))))
	for _, ext := range p.DebugFileExtensions() {
		ext = strings.ToLower(ext)
		if ext == "" {
			continue
		}
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Classifier answers symbol queries for a set of legal platforms
type Classifier struct {
	platforms []platform.Platform
}

// NewClassifier binds a classifier to the legal platforms of registry.
// Empty legal means every registered platform; a nil registry means the
// default one.
func NewClassifier(registry *platform.Registry, legal []string) *Classifier {
	c := &Classifier{}
	if registry == nil {
		registry = platform.DefaultRegistry()
	}
	if len(legal) == 0 {
		c.platforms = registry.Platforms()
		return c
	}
	for _, name := range legal {
		if p, ok := registry.Lookup(name); ok {
			c.platforms = append(c.platforms, p)
		}
	}
	return c
}

// IsSymbolFile reports whether any legal platform treats path as a symbol file
func (c *Classifier) IsSymbolFile(path string) bool {
	for _, p := range c.platforms {
		if IsSymbolFile(p, path) {
			return true
		}
	}
	return false
}
