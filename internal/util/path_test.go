package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"complete/Show/ep1.mp4", "complete/Show/ep1.mp4"},
		{"./complete/ep.mp4", "complete/ep.mp4"},
		{"a\\b\\c.mp4", "a/b/c.mp4"},
	}
	for _, tt := range tests {
		if got := NormalizeRelPath(tt.in); got != tt.want {
			t.Fatalf("NormalizeRelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeJoinRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := SafeJoin(root, "../../etc/passwd"); !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
	joined, err := SafeJoin(root, "complete/Show/ep1.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(joined, root) {
		t.Fatalf("path escaped root: %s", joined)
	}
}

func TestSafeJoinRejectsNulByte(t *testing.T) {
	if _, err := SafeJoin(t.TempDir(), "a\x00b"); !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestSafeJoinSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}
	if _, err := SafeJoin(root, "link/secret.mp4"); !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected symlink escape to be rejected, got %v", err)
	}
}

func TestRelFromRoot(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "complete", "Show", "ep1.mp4")
	rel, err := RelFromRoot(root, abs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel != "complete/Show/ep1.mp4" {
		t.Fatalf("unexpected rel path: %s", rel)
	}
}
