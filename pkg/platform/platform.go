// Package platform describes target platforms and the debug artifacts they produce
package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Well-known platform identifiers
const (
	Win32      = "Win32"
	Win64      = "Win64"
	HoloLens   = "HoloLens"
	Mac        = "Mac"
	IOS        = "IOS"
	TVOS       = "TVOS"
	Android    = "Android"
	Linux      = "Linux"
	LinuxArm64 = "LinuxArm64"
	XboxOne    = "XboxOne"
	PS4        = "PS4"
	Switch     = "Switch"
)

// WindowsFamily lists the identifiers whose content lives under "Windows" folders
var WindowsFamily = []string{Win32, Win64}

// Platform is a descriptor for one target platform
type Platform interface {
	Name() string
	DebugFileExtensions() []string
}

// Static is a Platform with a fixed extension list
type Static struct {
	name       string
	extensions []string
}

// WithExtensions creates a static platform descriptor.
// Extensions are stored with a leading dot.
func WithExtensions(name string, extensions ...string) *Static {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &Static{name: name, extensions: normalized}
}

// Name returns the platform identifier
func (s *Static) Name() string {
	return s.name
}

// DebugFileExtensions returns a copy of the debug extensions
func (s *Static) DebugFileExtensions() []string {
	out := make([]string, len(s.extensions))
	copy(out, s.extensions)
	return out
}

// Registry is an ordered set of platform descriptors
type Registry struct {
	mu        sync.RWMutex
	platforms []Platform
	index     map[string]int
}

// NewRegistry creates a registry holding the given platforms
func NewRegistry(platforms ...Platform) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, p := range platforms {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with every known platform
func DefaultRegistry() *Registry {
	return NewRegistry(
		WithExtensions(Win32, ".pdb", ".map"),
		WithExtensions(Win64, ".pdb", ".map"),
		WithExtensions(HoloLens, ".pdb", ".map"),
		WithExtensions(Mac, ".dSYM", ".udebugsymbols"),
		WithExtensions(IOS, ".dSYM", ".udebugsymbols"),
		WithExtensions(TVOS, ".dSYM", ".udebugsymbols"),
		WithExtensions(Android, ".so.debug"),
		WithExtensions(Linux, ".sym", ".debug"),
		WithExtensions(LinuxArm64, ".sym", ".debug"),
		WithExtensions(XboxOne, ".pdb"),
		WithExtensions(PS4, ".self.sym"),
		WithExtensions(Switch, ".nss"),
	)
}

// Register adds a platform or replaces one with the same name
func (r *Registry) Register(p Platform) {
	if p == nil || p.Name() == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(p.Name())
	if i, ok := r.index[key]; ok {
		r.platforms[i] = p
		return
	}
	r.index[key] = len(r.platforms)
	r.platforms = append(r.platforms, p)
}

// Lookup finds a platform by case-insensitive name
func (r *Registry) Lookup(name string) (Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.platforms[i], true
}

// Contains reports whether name is registered
func (r *Registry) Contains(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Platforms returns the registered descriptors in registration order
func (r *Registry) Platforms() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Platform, len(r.platforms))
	copy(out, r.platforms)
	return out
}

// Names returns the registered identifiers in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.platforms))
	for _, p := range r.platforms {
		names = append(names, p.Name())
	}
	return names
}

// Resolve maps user-supplied names to registered identifiers.
// Unknown names are an error; the result is sorted and deduplicated.
func (r *Registry) Resolve(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		p, ok := r.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown platform: %s", name)
		}
		if seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		resolved = append(resolved, p.Name())
	}
	sort.Strings(resolved)
	return resolved, nil
}
