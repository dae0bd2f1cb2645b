package reconcile

import (
	"sort"

	"github.com/blueturn/epicmirror/internal/models"
)

// Compare classifies a date from its mirror and remote catalogs and returns
// the ids to process, in remote order. Only set membership counts. With
// force every remote id is processed again.
func Compare(mirror []models.ImageRecord, inMirror bool, remote []models.ImageRecord, force bool) (State, []string) {
	if !inMirror {
		return StateNew, remoteIDs(remote, nil)
	}
	if force {
		return StateStale, remoteIDs(remote, nil)
	}

	have := models.IDs(mirror)
	want := models.IDs(remote)
	if equalSets(have, want) {
		return StateUpToDate, nil
	}
	return StateStale, remoteIDs(remote, have)
}

// remoteIDs lists the distinct remote ids that are not in skip.
func remoteIDs(remote []models.ImageRecord, skip map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(remote))
	var ids []string
	for _, r := range remote {
		if _, ok := skip[r.ImageID]; ok {
			continue
		}
		if _, ok := seen[r.ImageID]; ok {
			continue
		}
		seen[r.ImageID] = struct{}{}
		ids = append(ids, r.ImageID)
	}
	return ids
}

func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// merge overlays updated records on the mirror's records. Mirror-only
// records are kept. The result is ordered by capture time, then id.
func merge(mirror, updated []models.ImageRecord) []models.ImageRecord {
	byID := make(map[string]int, len(mirror)+len(updated))
	out := make([]models.ImageRecord, 0, len(mirror)+len(updated))
	for _, r := range mirror {
		if i, ok := byID[r.ImageID]; ok {
			out[i] = r
			continue
		}
		byID[r.ImageID] = len(out)
		out = append(out, r)
	}
	for _, r := range updated {
		if i, ok := byID[r.ImageID]; ok {
			out[i] = r
			continue
		}
		byID[r.ImageID] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ImageID < out[j].ImageID
	})
	return out
}
