package distill

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/poltergeist/distill/pkg/interfaces"
	"github.com/poltergeist/distill/pkg/logger"
	"github.com/poltergeist/distill/pkg/paths"
	"github.com/poltergeist/distill/pkg/utils"
)

// Engine copies selections of a source tree into the session's destination trees
type Engine struct {
	ctx *Context
	fs  interfaces.FileSystem
	log logger.Logger
	// sourceRoot is the canonical spelling of ctx.SourceRoot(), so canonical
	// candidate paths can be rerooted even through symlinked roots.
	sourceRoot string
}

// NewEngine binds ctx to a filesystem and logging sink.
// A nil logger discards all output.
func NewEngine(ctx *Context, fs interfaces.FileSystem, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}

	sourceRoot := ctx.SourceRoot()
	if fs.Exists(sourceRoot) {
		if canonical, err := fs.CanonicalPath(sourceRoot); err == nil {
			sourceRoot = canonical
		}
	}

	return &Engine{
		ctx:        ctx,
		fs:         fs,
		log:        log.WithSession(ctx.ID()),
		sourceRoot: sourceRoot,
	}
}

// Context returns the engine's session context
func (e *Engine) Context() *Context {
	return e.ctx
}

// CopyFileToDest copies one file into the destination tree and returns its
// canonical destination. Symbol files go to the symbols root when moveSymbols
// is set and a symbols root is configured. Existing destinations are never
// overwritten.
func (e *Engine) CopyFileToDest(path string, moveSymbols bool) (string, error) {
	record, err := e.copyFile(path, moveSymbols)
	if err != nil {
		return "", err
	}
	return record.Destination, nil
}

func (e *Engine) copyFile(path string, moveSymbols bool) (CopyRecord, error) {
	const op = "copy file"

	if !e.fs.Exists(path) {
		return CopyRecord{}, opError(op, ErrNotFound, path)
	}

	source, err := e.fs.CanonicalPath(path)
	if err != nil {
		return CopyRecord{}, opError(op, err, path)
	}

	destBase := e.ctx.DestRoot()
	if moveSymbols && e.ctx.DestSymbolsRoot() != "" && e.ctx.IsSymbolFile(source) {
		destBase = e.ctx.DestSymbolsRoot()
	}

	dest, err := e.reroot(source, destBase)
	if err != nil {
		return CopyRecord{}, opError(op, err, source)
	}

	if e.fs.Exists(dest) {
		return CopyRecord{}, opError(op, ErrAlreadyExists, source, dest)
	}

	if err := e.fs.Copy(source, dest); err != nil {
		return CopyRecord{}, opError(op, err, source, dest)
	}
	if err := e.fs.ClearReadOnly(dest); err != nil {
		return CopyRecord{}, opError(op, err, dest)
	}
	stamp := e.ctx.Timestamp()
	if err := e.fs.SetTimestamps(dest, stamp, stamp); err != nil {
		return CopyRecord{}, opError(op, err, dest)
	}

	if !e.fs.Exists(dest) {
		return CopyRecord{}, opError(op, ErrIntegrity, source, dest)
	}

	canonicalDest, err := e.fs.CanonicalPath(dest)
	if err != nil {
		return CopyRecord{}, opError(op, err, dest)
	}

	e.log.Debug("Distilled file",
		logger.WithField("source", source),
		logger.WithField("destination", canonicalDest))

	return CopyRecord{Source: source, Destination: canonicalDest, Timestamp: stamp}, nil
}

// reroot moves source under destBase, trying the canonical source root first
func (e *Engine) reroot(source, destBase string) (string, error) {
	if paths.HasBase(source, e.sourceRoot) {
		return paths.MakeRerootedFilePath(source, e.sourceRoot, destBase)
	}
	return paths.MakeRerootedFilePath(source, e.ctx.SourceRoot(), destBase)
}

// Distill copies every file of sel that survives the reject rules and the
// exclusion tokens. The manifest lists destinations in enumeration order.
//
// Exclusion tokens without a path separator are expanded as wildcards in the
// search directory; tokens with a separator are literal substrings of the
// candidate's path relative to the search directory and must not contain
// wildcards.
//
// When a copy fails the returned manifest lists the files copied before the
// failure; those files stay in the destination.
func (e *Engine) Distill(sel Selection) (*Manifest, error) {
	const op = "distill"
	started := time.Now()

	pattern := paths.Normalize(sel.Pattern)
	if pattern == "" {
		return nil, opError(op, fmt.Errorf("%w: empty pattern", ErrInvalidArgument))
	}
	dir := filepath.FromSlash(pattern)
	wildcard := filepath.Base(dir)
	dir = filepath.Dir(dir)

	var wildcardTokens, literalTokens []string
	for _, token := range sel.Exclusions {
		if token == "" {
			continue
		}
		if !strings.ContainsAny(token, `/\`) {
			wildcardTokens = append(wildcardTokens, token)
			continue
		}
		if utils.IsGlobPattern(token) {
			return nil, opError(op, fmt.Errorf("%w: exclusion %q mixes a path separator with wildcards", ErrInvalidArgument, token), sel.Pattern)
		}
		literalTokens = append(literalTokens, strings.ToLower(strings.ReplaceAll(token, `\`, "/")))
	}

	manifest := &Manifest{}

	if !e.fs.Exists(dir) {
		if sel.AllowMissing {
			return manifest, nil
		}
		return nil, opError(op, ErrNotFound, dir)
	}

	candidates, err := e.fs.ListFiles(wildcard, sel.Recursive, dir)
	if err != nil {
		return nil, opError(op, err, dir)
	}

	excluded := make(map[string]bool)
	for _, token := range wildcardTokens {
		matches, err := e.fs.ListFiles(token, sel.Recursive, dir)
		if err != nil {
			return nil, opError(op, err, dir)
		}
		for _, m := range matches {
			excluded[m] = true
		}
	}

	rejected := 0
	for _, candidate := range candidates {
		if reason, skip := e.rejectReason(candidate, dir, excluded, literalTokens); skip {
			rejected++
			e.log.Debug("Rejected file",
				logger.WithField("path", candidate),
				logger.WithField("reason", reason))
			continue
		}

		record, err := e.copyFile(candidate, sel.MoveSymbols)
		if err != nil {
			return manifest, err
		}
		manifest.Records = append(manifest.Records, record)
	}

	if manifest.Len() == 0 && !sel.AllowMissing {
		return nil, opError(op, ErrEmptyResult, sel.Pattern)
	}

	e.log.Info("Distilled selection",
		logger.WithField("pattern", sel.Pattern),
		logger.WithField("copied", manifest.Len()),
		logger.WithField("rejected", rejected),
		logger.WithField("elapsed", time.Since(started).Round(time.Millisecond)))

	return manifest, nil
}

// rejectReason applies the exclusion set, the reject rules and the literal
// tokens. Each gate is independent; the first that fires names the reason.
func (e *Engine) rejectReason(candidate, dir string, excluded map[string]bool, literalTokens []string) (string, bool) {
	if excluded[candidate] {
		return "excluded by wildcard", true
	}

	relative := paths.RelativeSlash(candidate, dir)
	if pattern, ok := e.ctx.Rules().MatchingPattern(relative); ok {
		return "restricted folder " + pattern, true
	}

	lowered := strings.ToLower(relative)
	for _, token := range literalTokens {
		if strings.Contains(lowered, token) {
			return "excluded by " + token, true
		}
	}
	return "", false
}

// DistillAll runs selections in order and stops at the first failure.
// The returned manifest holds everything copied before the failure.
func (e *Engine) DistillAll(selections ...Selection) (*Manifest, error) {
	total := &Manifest{}
	for _, sel := range selections {
		m, err := e.Distill(sel)
		total.Append(m)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
