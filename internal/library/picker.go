package library

import "math/rand"

// Hint steers the next pick. Zero value means "anything".
type Hint struct {
	// Show restricts the pick to an explicitly named show.
	Show string
	// CurrentPath is the library-relative path of what just played.
	CurrentPath string
	// SameFolder keeps the pick inside the current file's show; when false
	// and CurrentPath is set, the pick rotates to the next show instead.
	SameFolder bool
}

// Picker selects one file from a library snapshot. Every decision is a pure
// function of the snapshot, the recent-history set and the hint; no state is
// carried between calls. The RNG is injected so tests can pin it.
type Picker struct {
	rng *rand.Rand
}

func NewPicker(rng *rand.Rand) *Picker {
	return &Picker{rng: rng}
}

func filterShow(files []VideoFile, show string) []VideoFile {
	out := make([]VideoFile, 0, len(files))
	for _, f := range files {
		if f.Show == show {
			out = append(out, f)
		}
	}
	return out
}

// choose applies the soft recency rule: recently watched files are excluded
// unless that would leave nothing, in which case the exclusion is dropped.
func (p *Picker) choose(candidates []VideoFile, recent map[string]struct{}) *VideoFile {
	if len(candidates) == 0 {
		return nil
	}
	fresh := make([]VideoFile, 0, len(candidates))
	for _, f := range candidates {
		if _, watched := recent[f.Rel]; !watched {
			fresh = append(fresh, f)
		}
	}
	if len(fresh) == 0 {
		fresh = candidates
	}
	pick := fresh[p.rng.Intn(len(fresh))]
	return &pick
}

func nextShow(shows []string, current string) string {
	if len(shows) == 0 {
		return ""
	}
	for i, s := range shows {
		if s == current {
			return shows[(i+1)%len(shows)]
		}
	}
	return shows[0]
}

// Pick resolves the hint against the snapshot, in priority order: explicit
// show, same folder, next folder in rotation, then the whole library. A show
// with no files falls through to the whole-library rule rather than probing
// further shows. Returns nil only when even the full library is empty.
func (p *Picker) Pick(hint Hint, files []VideoFile, recent map[string]struct{}, shows []string, showOf func(string) string) *VideoFile {
	var chosen *VideoFile
	switch {
	case hint.Show != "":
		chosen = p.choose(filterShow(files, hint.Show), recent)
	case hint.CurrentPath != "" && hint.SameFolder:
		chosen = p.choose(filterShow(files, showOf(hint.CurrentPath)), recent)
	case hint.CurrentPath != "":
		if target := nextShow(shows, showOf(hint.CurrentPath)); target != "" {
			chosen = p.choose(filterShow(files, target), recent)
		}
	}
	if chosen == nil {
		chosen = p.choose(files, recent)
	}
	return chosen
}
