package syncer

import (
	"sort"

	"github.com/ekamanam/studysync/internal/models"
)

// MergeResult is the outcome of merging a local and a remote record set.
type MergeResult[T models.Record] struct {
	// Items is the merged set ordered by id.
	Items []T
	// RemoteWins are remote records that must be written to the local store.
	RemoteWins []T
	// LocalAhead are local records the remote manifest lacks or holds an
	// older copy of.
	LocalAhead []T
}

// Merge merges local and remote by id. A remote record wins when there is no
// local counterpart or its UpdatedAt is equal to or newer than the local one.
// Records whose id is in removed are dropped from both sides.
func Merge[T models.Record](local, remote []T, removed map[string]struct{}) MergeResult[T] {
	merged := make(map[string]T, len(local)+len(remote))
	localByID := make(map[string]T, len(local))
	for _, rec := range local {
		if _, gone := removed[rec.RecordID()]; gone {
			continue
		}
		localByID[rec.RecordID()] = rec
		merged[rec.RecordID()] = rec
	}

	var res MergeResult[T]
	seenRemote := make(map[string]struct{}, len(remote))
	for _, rec := range remote {
		id := rec.RecordID()
		if _, gone := removed[id]; gone {
			continue
		}
		seenRemote[id] = struct{}{}

		l, ok := localByID[id]
		if !ok || !rec.RecordUpdatedAt().Before(l.RecordUpdatedAt()) {
			merged[id] = rec
			res.RemoteWins = append(res.RemoteWins, rec)
			continue
		}
		res.LocalAhead = append(res.LocalAhead, l)
	}

	for id, rec := range localByID {
		if _, ok := seenRemote[id]; !ok {
			res.LocalAhead = append(res.LocalAhead, rec)
		}
	}

	res.Items = make([]T, 0, len(merged))
	for _, rec := range merged {
		res.Items = append(res.Items, rec)
	}
	sortByID(res.Items)
	sortByID(res.RemoteWins)
	sortByID(res.LocalAhead)
	return res
}

// dedupe keeps the newest record per id, first occurrence on ties.
func dedupe[T models.Record](recs []T) []T {
	byID := make(map[string]int, len(recs))
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		id := rec.RecordID()
		if i, ok := byID[id]; ok {
			if rec.RecordUpdatedAt().After(out[i].RecordUpdatedAt()) {
				out[i] = rec
			}
			continue
		}
		byID[id] = len(out)
		out = append(out, rec)
	}
	return out
}

// upsert replaces the record with rec's id or appends rec.
func upsert[T models.Record](recs []T, rec T) []T {
	for i := range recs {
		if recs[i].RecordID() == rec.RecordID() {
			recs[i] = rec
			return recs
		}
	}
	return append(recs, rec)
}

// without returns recs minus the record with id.
func without[T models.Record](recs []T, id string) ([]T, bool) {
	out := recs[:0:0]
	found := false
	for _, rec := range recs {
		if rec.RecordID() == id {
			found = true
			continue
		}
		out = append(out, rec)
	}
	return out, found
}

func sortByID[T models.Record](recs []T) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].RecordID() < recs[j].RecordID() })
}
