// Package library discovers playable files on disk and picks the next
// episode to watch. The filesystem is the source of truth: every scan walks
// the tree again, so results always reflect the current library state.
package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"multtv/internal/util"
)

// VideoFile is one playable file discovered by a scan.
type VideoFile struct {
	Abs  string
	Rel  string
	Show string
}

// Indexer walks a video library root. Staging holds download-manager working
// folder names skipped when a file's show is derived from its path.
type Indexer struct {
	Root        string
	CompleteDir string
	Staging     []string
}

func NewIndexer(root, completeDir string, staging []string) *Indexer {
	return &Indexer{Root: root, CompleteDir: completeDir, Staging: staging}
}

func isVideo(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".mp4")
}

// ShowName derives the show grouping from a library-relative path: the first
// path segment, or the one after it when the first is a staging folder.
// Files sitting directly at the root have no show.
func (ix *Indexer) ShowName(rel string) string {
	parts := strings.Split(util.NormalizeRelPath(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	if len(parts) > 2 {
		for _, staged := range ix.Staging {
			if parts[0] == staged {
				return parts[1]
			}
		}
	}
	return parts[0]
}

func (ix *Indexer) walk(blocked map[string]struct{}) ([]VideoFile, error) {
	files := make([]VideoFile, 0, 64)
	err := filepath.WalkDir(ix.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == ix.Root {
				return err
			}
			return nil
		}
		if d.IsDir() || !isVideo(d.Name()) {
			return nil
		}
		rel, err := util.RelFromRoot(ix.Root, p)
		if err != nil {
			return nil
		}
		if _, bad := blocked[rel]; bad {
			return nil
		}
		files = append(files, VideoFile{Abs: p, Rel: rel, Show: ix.ShowName(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Scan enumerates playable files, excluding paths that failed validation.
func (ix *Indexer) Scan(blocked map[string]struct{}) ([]VideoFile, error) {
	return ix.walk(blocked)
}

// ScanAll enumerates every playable file regardless of validation verdicts;
// used by the validator sweep and admin tooling.
func (ix *Indexer) ScanAll() ([]VideoFile, error) {
	return ix.walk(nil)
}

// Shows lists the selectable shows: the sorted immediate subfolders of the
// completed-downloads directory. In-progress downloads never appear here.
func (ix *Indexer) Shows() ([]string, error) {
	entries, err := os.ReadDir(ix.CompleteDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	shows := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			shows = append(shows, e.Name())
		}
	}
	sort.Strings(shows)
	return shows, nil
}
