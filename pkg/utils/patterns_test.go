package utils_test

import (
	"testing"

	"github.com/poltergeist/distill/pkg/utils"
)

func TestWildcard_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"simple wildcard", "*.txt", "a.txt", true},
		{"simple wildcard no match", "*.txt", "a.pak", false},
		{"matches base name only", "*.txt", "/src/Data/a.txt", true},
		{"case insensitive", "*.TXT", "readme.txt", true},
		{"question mark", "file?.bin", "file1.bin", true},
		{"question mark no match", "file?.bin", "file12.bin", false},
		{"character class", "level[0-9].umap", "level5.umap", true},
		{"negated character class", "level[!0-9].umap", "levelA.umap", true},
		{"exact", "readme.txt", "readme.txt", true},
		{"exact differs", "readme.txt", "readme.txt.bak", false},
		{"dots are literal", "a.b", "axb", false},
		{"star matches everything", "*", "anything.at.all", true},
		{"unclosed bracket is literal", "a[b", "a[b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := utils.NewWildcard(tt.pattern)
			if err != nil {
				t.Fatalf("failed to compile %q: %v", tt.pattern, err)
			}
			if got := w.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) with %q = %v, want %v", tt.path, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestIsGlobPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"*.txt", true},
		{"file?.bin", true},
		{"level[0-9]", true},
		{"readme.txt", false},
		{"Saved/Logs", false},
	}

	for _, tt := range tests {
		if got := utils.IsGlobPattern(tt.pattern); got != tt.want {
			t.Errorf("IsGlobPattern(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}
