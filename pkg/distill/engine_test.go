package distill_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/poltergeist/distill/pkg/distill"
	"github.com/poltergeist/distill/pkg/logger"
	"github.com/poltergeist/distill/pkg/mocks"
	"github.com/poltergeist/distill/pkg/platform"
	"github.com/poltergeist/distill/pkg/utils"
	"github.com/spf13/afero"
)

var stamp = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func testRegistry() *platform.Registry {
	return platform.NewRegistry(
		platform.WithExtensions(platform.Win32, ".pdb"),
		platform.WithExtensions(platform.Win64, ".pdb"),
		platform.WithExtensions("LinuxX", ".sym"),
	)
}

type fixture struct {
	fs     *utils.FileSystem
	engine *distill.Engine
}

func newFixture(t *testing.T, opts distill.Options, files ...string) fixture {
	t.Helper()

	mem := afero.NewMemMapFs()
	for _, f := range files {
		if err := afero.WriteFile(mem, f, []byte(f), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	if opts.SourceRoot == "" {
		opts.SourceRoot = "/src"
	}
	if opts.DestRoot == "" {
		opts.DestRoot = "/dst"
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = stamp
	}
	if opts.Registry == nil {
		opts.Registry = testRegistry()
	}

	ctx, err := distill.NewContext(opts)
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}

	fs := utils.NewFileSystem(mem)
	return fixture{fs: fs, engine: distill.NewEngine(ctx, fs, nil)}
}

func TestCopyFileToDest(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/Game/Content/a.pak")

	dest, err := f.engine.CopyFileToDest("/src/Game/Content/a.pak", true)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if dest != "/dst/Game/Content/a.pak" {
		t.Errorf("unexpected destination %s", dest)
	}

	modTime, err := f.fs.ModTime(dest)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !modTime.Equal(stamp) {
		t.Errorf("expected timestamp %v, got %v", stamp, modTime)
	}
}

func TestCopyFileToDest_NeverOverwrites(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/a.txt")

	if _, err := f.engine.CopyFileToDest("/src/a.txt", true); err != nil {
		t.Fatalf("first copy failed: %v", err)
	}

	_, err := f.engine.CopyFileToDest("/src/a.txt", true)
	if !errors.Is(err, distill.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	var opErr *distill.Error
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *distill.Error, got %T", err)
	}
	if opErr.Op != "copy file" || !reflect.DeepEqual(opErr.Paths, []string{"/src/a.txt", "/dst/a.txt"}) {
		t.Errorf("unexpected error details: %+v", opErr)
	}
}

func TestCopyFileToDest_MissingSource(t *testing.T) {
	f := newFixture(t, distill.Options{})

	_, err := f.engine.CopyFileToDest("/src/missing.txt", true)
	if !errors.Is(err, distill.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "/src/missing.txt") {
		t.Errorf("expected path in error message, got %q", err.Error())
	}
}

func TestCopyFileToDest_OutsideSourceRoot(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/elsewhere/a.txt")

	_, err := f.engine.CopyFileToDest("/elsewhere/a.txt", true)
	if !errors.Is(err, distill.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCopyFileToDest_ClearsReadOnly(t *testing.T) {
	f := newFixture(t, distill.Options{})
	if err := afero.WriteFile(f.fs.Fs(), "/src/locked.bin", []byte("x"), 0444); err != nil {
		t.Fatal(err)
	}

	dest, err := f.engine.CopyFileToDest("/src/locked.bin", true)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	info, err := f.fs.Fs().Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0200 == 0 {
		t.Errorf("expected writable destination, got %v", info.Mode())
	}
}

func TestCopyFileToDest_IntegrityFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "/src/a.txt", []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, err := distill.NewContext(distill.Options{SourceRoot: "/src", DestRoot: "/dst", Registry: testRegistry()})
	if err != nil {
		t.Fatal(err)
	}

	fs := mocks.NewMockFileSystem(utils.NewFileSystem(mem))
	fs.DropAfterStamp = true
	engine := distill.NewEngine(ctx, fs, nil)

	if _, err := engine.CopyFileToDest("/src/a.txt", true); !errors.Is(err, distill.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestDistill_WildcardExclusion(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/Data/a.txt", "/src/Data/b.txt", "/src/Data/readme.txt", "/src/Data/c.pak")

	sel := distill.NewSelection("/src/Data/*.txt")
	sel.Exclusions = []string{"readme.txt"}

	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}

	want := []string{"/dst/Data/a.txt", "/dst/Data/b.txt"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if f.fs.Exists("/dst/Data/readme.txt") {
		t.Error("excluded file must not be copied")
	}
}

func TestDistill_EmptyResult(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/Data/a.pak")

	_, err := f.engine.Distill(distill.NewSelection("/src/Data/*.txt"))
	if !errors.Is(err, distill.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}

	sel := distill.NewSelection("/src/Data/*.txt")
	sel.AllowMissing = true
	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("expected no error with AllowMissing, got %v", err)
	}
	if manifest.Len() != 0 {
		t.Errorf("expected empty manifest, got %v", manifest.Paths())
	}
}

func TestDistill_MissingDirectory(t *testing.T) {
	f := newFixture(t, distill.Options{})

	_, err := f.engine.Distill(distill.NewSelection("/src/Nowhere/*"))
	if !errors.Is(err, distill.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sel := distill.NewSelection("/src/Nowhere/*")
	sel.AllowMissing = true
	manifest, err := f.engine.Distill(sel)
	if err != nil || manifest.Len() != 0 {
		t.Fatalf("expected empty manifest, got %v (%v)", manifest, err)
	}
}

func TestDistill_SymbolRouting(t *testing.T) {
	files := []string{"/src/Bin/Game.exe", "/src/Bin/Game.pdb"}

	f := newFixture(t, distill.Options{DestSymbolsRoot: "/sym"}, files...)
	manifest, err := f.engine.Distill(distill.NewSelection("/src/Bin/*"))
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	want := []string{"/dst/Bin/Game.exe", "/sym/Bin/Game.pdb"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	f = newFixture(t, distill.Options{DestSymbolsRoot: "/sym"}, files...)
	sel := distill.NewSelection("/src/Bin/*")
	sel.MoveSymbols = false
	manifest, err = f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	want = []string{"/dst/Bin/Game.exe", "/dst/Bin/Game.pdb"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDistill_SymbolRoutingDisabledWithoutRoot(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/Bin/Game.pdb")

	dest, err := f.engine.CopyFileToDest("/src/Bin/Game.pdb", true)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if dest != "/dst/Bin/Game.pdb" {
		t.Errorf("expected destination under /dst, got %s", dest)
	}
}

func TestDistill_SymbolRoutingIgnoresIllegalPlatforms(t *testing.T) {
	opts := distill.Options{DestSymbolsRoot: "/sym", LegalPlatforms: []string{"LinuxX"}}
	f := newFixture(t, opts, "/src/Bin/Game.pdb", "/src/Bin/Game.sym")

	manifest, err := f.engine.Distill(distill.NewSelection("/src/Bin/*"))
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	want := []string{"/dst/Bin/Game.pdb", "/sym/Bin/Game.sym"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDistill_MalformedLiteralExclusion(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "star", token: "Saved/*.log"},
		{name: "question mark", token: `Saved\log?.txt`},
		{name: "character class", token: "Saved/[ab].log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := afero.NewMemMapFs()
			for _, f := range []string{"/src/Data/a.txt", "/src/Data/b.txt"} {
				if err := afero.WriteFile(mem, f, []byte("x"), 0644); err != nil {
					t.Fatal(err)
				}
			}
			ctx, err := distill.NewContext(distill.Options{SourceRoot: "/src", DestRoot: "/dst", Registry: testRegistry()})
			if err != nil {
				t.Fatal(err)
			}
			fs := mocks.NewMockFileSystem(utils.NewFileSystem(mem))
			engine := distill.NewEngine(ctx, fs, nil)

			sel := distill.NewSelection("/src/Data/*.txt")
			sel.Exclusions = []string{"a.txt", tt.token}

			if _, err := engine.Distill(sel); !errors.Is(err, distill.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if n := fs.CopyCount(); n != 0 {
				t.Errorf("expected no copies, got %d", n)
			}
		})
	}
}

func TestDistill_LiteralExclusion(t *testing.T) {
	f := newFixture(t, distill.Options{},
		"/src/Game/Saved/Logs/run.log",
		"/src/Game/Content/keep.log",
	)

	sel := distill.NewSelection("/src/Game/*.log")
	sel.Recursive = true
	sel.Exclusions = []string{`saved\logs`}

	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	want := []string{"/dst/Game/Content/keep.log"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDistill_RejectRules(t *testing.T) {
	opts := distill.Options{LegalPlatforms: []string{"LinuxX"}}
	f := newFixture(t, opts,
		"/src/Game/Windows/game.exe",
		"/src/Game/Win64/game.dll",
		"/src/Game/LinuxX/game.so",
		"/src/Game/Content/shared.pak",
		"/src/Game/NoRedist/secret.pak",
		"/src/Game/NotForLicensees/tool.pak",
	)

	sel := distill.NewSelection("/src/Game/*")
	sel.Recursive = true

	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	want := []string{"/dst/Game/Content/shared.pak", "/dst/Game/LinuxX/game.so"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDistill_TopLevelRestrictedFolder(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/NoRedist/a.txt", "/src/b.txt")

	sel := distill.NewSelection("/src/*.txt")
	sel.Recursive = true

	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	if got := manifest.Paths(); !reflect.DeepEqual(got, []string{"/dst/b.txt"}) {
		t.Errorf("unexpected manifest %v", got)
	}
}

func TestDistill_AllowNoRedist(t *testing.T) {
	f := newFixture(t, distill.Options{AllowNoRedist: true}, "/src/NoRedist/a.txt")

	sel := distill.NewSelection("/src/*.txt")
	sel.Recursive = true

	manifest, err := f.engine.Distill(sel)
	if err != nil {
		t.Fatalf("distill failed: %v", err)
	}
	if manifest.Len() != 1 {
		t.Errorf("expected NoRedist content to be copied, got %v", manifest.Paths())
	}
}

func TestDistill_LogsRejections(t *testing.T) {
	mem := afero.NewMemMapFs()
	for _, f := range []string{"/src/a.txt", "/src/NoRedist/b.txt"} {
		if err := afero.WriteFile(mem, f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	ctx, err := distill.NewContext(distill.Options{SourceRoot: "/src", DestRoot: "/dst", Registry: testRegistry()})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	engine := distill.NewEngine(ctx, utils.NewFileSystem(mem), logger.CreateLoggerWithOutput("debug", &buf))

	sel := distill.NewSelection("/src/*.txt")
	sel.Recursive = true
	if _, err := engine.Distill(sel); err != nil {
		t.Fatalf("distill failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Rejected file") || !strings.Contains(output, "/NoRedist/") {
		t.Errorf("expected rejection to be logged, got %q", output)
	}
	if !strings.Contains(output, "Distilled selection") {
		t.Errorf("expected summary line, got %q", output)
	}
}

func TestDistillAll_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/a.txt")

	manifest, err := f.engine.DistillAll(
		distill.NewSelection("/src/*.txt"),
		distill.NewSelection("/src/*.pak"),
		distill.NewSelection("/src/*.txt"),
	)
	if !errors.Is(err, distill.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if got := manifest.Paths(); !reflect.DeepEqual(got, []string{"/dst/a.txt"}) {
		t.Errorf("expected partial manifest, got %v", got)
	}
}

func TestDistillAll_PartialManifestIncludesFailingSelection(t *testing.T) {
	f := newFixture(t, distill.Options{},
		"/src/A/a.txt",
		"/src/B/b1.txt",
		"/src/B/b2.txt",
		"/dst/B/b2.txt",
	)

	manifest, err := f.engine.DistillAll(
		distill.NewSelection("/src/A/*"),
		distill.NewSelection("/src/B/*"),
	)
	if !errors.Is(err, distill.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	want := []string{"/dst/A/a.txt", "/dst/B/b1.txt"}
	if got := manifest.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("partial manifest = %v, want %v", got, want)
	}
	for _, p := range want {
		if !f.fs.Exists(p) {
			t.Errorf("expected %s to remain in the destination", p)
		}
	}
}

func TestDistill_CopyFailureReturnsCopiedSoFar(t *testing.T) {
	f := newFixture(t, distill.Options{}, "/src/a.txt", "/src/b.txt", "/dst/b.txt")

	manifest, err := f.engine.Distill(distill.NewSelection("/src/*.txt"))
	if !errors.Is(err, distill.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if manifest == nil || manifest.Len() != 1 {
		t.Fatalf("expected one copied file in the manifest, got %+v", manifest)
	}
}

func TestDistill_DeterministicAcrossRuns(t *testing.T) {
	files := []string{"/src/b.txt", "/src/a.txt", "/src/sub/c.txt"}

	run := func() []string {
		f := newFixture(t, distill.Options{}, files...)
		sel := distill.NewSelection("/src/*.txt")
		sel.Recursive = true
		manifest, err := f.engine.Distill(sel)
		if err != nil {
			t.Fatalf("distill failed: %v", err)
		}
		for _, p := range manifest.Paths() {
			modTime, err := f.fs.ModTime(p)
			if err != nil || !modTime.Equal(stamp) {
				t.Errorf("unexpected timestamp for %s: %v (%v)", p, modTime, err)
			}
		}
		return manifest.Paths()
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("manifests differ: %v vs %v", first, second)
	}
}
