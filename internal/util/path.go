package util

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a user-supplied path resolves outside the
// library root. Callers must treat it as a hard deny.
var ErrPathEscape = errors.New("path escapes root")

// NormalizeRelPath turns user input into a clean, slash-separated relative path.
func NormalizeRelPath(p string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	clean = strings.TrimPrefix(path.Clean("/"+clean), "/")
	if clean == "." {
		return ""
	}
	return clean
}

func realPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

func within(root, target string) bool {
	if root == target {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// SafeJoin joins rel under root and verifies the result stays inside root,
// following symlinks. Any escape fails with ErrPathEscape, never a clamp.
func SafeJoin(root, rel string) (string, error) {
	if strings.ContainsRune(rel, '\x00') {
		return "", ErrPathEscape
	}
	for _, seg := range strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/") {
		if seg == ".." {
			return "", ErrPathEscape
		}
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(rootAbs, filepath.FromSlash(NormalizeRelPath(rel)))
	if !within(rootAbs, joined) {
		return "", ErrPathEscape
	}
	rootReal := realPath(rootAbs)
	targetReal := joined
	if _, err := os.Stat(joined); err == nil {
		targetReal = realPath(joined)
	} else {
		targetReal = filepath.Join(realPath(filepath.Dir(joined)), filepath.Base(joined))
	}
	if !within(rootReal, targetReal) {
		return "", ErrPathEscape
	}
	return joined, nil
}

// RelFromRoot converts an absolute path under root into its slash-separated
// library-relative form.
func RelFromRoot(root, absolute string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, absolute)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
