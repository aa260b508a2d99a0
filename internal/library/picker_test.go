package library

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var testShowOf = func(rel string) string {
	ix := Indexer{Staging: []string{"complete", "incomplete"}}
	return ix.ShowName(rel)
}

func lib(rels ...string) []VideoFile {
	files := make([]VideoFile, 0, len(rels))
	for _, r := range rels {
		files = append(files, VideoFile{Abs: "/lib/" + r, Rel: r, Show: testShowOf(r)})
	}
	return files
}

func newTestPicker() *Picker {
	return NewPicker(rand.New(rand.NewSource(1)))
}

func TestPickExplicitShowSkipsRecent(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/A/a2.mp4", "complete/B/b1.mp4")
	recent := map[string]struct{}{"complete/A/a1.mp4": {}}

	p := newTestPicker()
	for i := 0; i < 20; i++ {
		got := p.Pick(Hint{Show: "A"}, files, recent, []string{"A", "B"}, testShowOf)
		require.NotNil(t, got)
		require.Equal(t, "complete/A/a2.mp4", got.Rel, "only non-recent candidate is deterministic")
	}
}

func TestPickRecencyIsSoft(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/A/a2.mp4")
	recent := map[string]struct{}{
		"complete/A/a1.mp4": {},
		"complete/A/a2.mp4": {},
	}
	got := newTestPicker().Pick(Hint{Show: "A"}, files, recent, []string{"A"}, testShowOf)
	require.NotNil(t, got, "fully watched show must still yield a pick")
	require.Equal(t, "A", got.Show)
}

func TestPickSameFolder(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/A/a2.mp4", "complete/B/b1.mp4")
	got := newTestPicker().Pick(
		Hint{CurrentPath: "complete/A/a1.mp4", SameFolder: true},
		files, nil, []string{"A", "B"}, testShowOf)
	require.NotNil(t, got)
	require.Equal(t, "A", got.Show)
}

func TestPickNextFolderRotates(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/B/b1.mp4", "complete/C/c1.mp4")
	shows := []string{"A", "B", "C"}
	p := newTestPicker()

	got := p.Pick(Hint{CurrentPath: "complete/A/a1.mp4"}, files, nil, shows, testShowOf)
	require.NotNil(t, got)
	require.Equal(t, "B", got.Show)

	got = p.Pick(Hint{CurrentPath: "complete/C/c1.mp4"}, files, nil, shows, testShowOf)
	require.NotNil(t, got)
	require.Equal(t, "A", got.Show, "rotation wraps from last to first")
}

func TestPickNextFolderUnknownShowTargetsFirst(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/B/b1.mp4")
	got := newTestPicker().Pick(
		Hint{CurrentPath: "Z/zz.mp4"},
		files, nil, []string{"A", "B"}, testShowOf)
	require.NotNil(t, got)
	require.Equal(t, "A", got.Show)
}

func TestPickEmptyShowFallsBackToLibrary(t *testing.T) {
	files := lib("complete/A/a1.mp4")
	got := newTestPicker().Pick(Hint{Show: "Missing"}, files, nil, []string{"A"}, testShowOf)
	require.NotNil(t, got, "empty explicit show falls through to the full library")
	require.Equal(t, "complete/A/a1.mp4", got.Rel)
}

func TestPickNextFolderEmptyTargetFallsBack(t *testing.T) {
	// B is in rotation but has no files on disk; the pick falls back to the
	// whole library instead of probing C.
	files := lib("complete/A/a1.mp4")
	got := newTestPicker().Pick(
		Hint{CurrentPath: "complete/A/a1.mp4"},
		files, nil, []string{"A", "B", "C"}, testShowOf)
	require.NotNil(t, got)
	require.Equal(t, "complete/A/a1.mp4", got.Rel)
}

func TestPickEmptyLibrary(t *testing.T) {
	got := newTestPicker().Pick(Hint{}, nil, nil, nil, testShowOf)
	require.Nil(t, got)
}

func TestPickNoHintUsesWholeLibrary(t *testing.T) {
	files := lib("complete/A/a1.mp4", "complete/B/b1.mp4")
	recent := map[string]struct{}{"complete/A/a1.mp4": {}}
	for i := 0; i < 20; i++ {
		got := newTestPicker().Pick(Hint{}, files, recent, []string{"A", "B"}, testShowOf)
		require.NotNil(t, got)
		require.Equal(t, "complete/B/b1.mp4", got.Rel)
	}
}
