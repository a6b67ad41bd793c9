package sync

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// SyncPlan is what one pull or push intends to do. Paths are sorted.
type SyncPlan struct {
	ToTransfer []string `json:"toTransfer"`
	ToDelete   []string `json:"toDelete"`
	Unchanged  int      `json:"unchanged"`
}

// Diff compares the authoritative side against the mirror by relative path and fingerprint.
// A path is unchanged only when both fingerprints are equal and non-empty; size is never consulted.
func Diff[A Entry, M Entry](authoritative []A, mirror []M) *SyncPlan {
	mirrorDigests := make(map[string]string, len(mirror))
	mirrorPaths := mapset.NewThreadUnsafeSetWithSize[string](len(mirror))
	for _, entry := range mirror {
		mirrorDigests[entry.Path()] = entry.Digest()
		mirrorPaths.Add(entry.Path())
	}

	authPaths := mapset.NewThreadUnsafeSetWithSize[string](len(authoritative))
	plan := &SyncPlan{
		ToTransfer: []string{},
		ToDelete:   []string{},
	}

	for _, entry := range authoritative {
		path := entry.Path()
		if !authPaths.Add(path) {
			continue
		}

		digest, ok := mirrorDigests[path]
		if ok && digest != "" && digest == entry.Digest() {
			plan.Unchanged++
			continue
		}
		plan.ToTransfer = append(plan.ToTransfer, path)
	}

	plan.ToDelete = mirrorPaths.Difference(authPaths).ToSlice()
	slices.Sort(plan.ToTransfer)
	slices.Sort(plan.ToDelete)
	return plan
}
