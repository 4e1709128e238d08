package models

import (
	"math"
	"slices"
	"sort"
	"time"
)

// LibraryItem is one stored document.
//
// ID never changes after creation. RemoteFileID is set once, on first upload;
// later payload changes replace the remote object in place. LastOpened drives
// recency ordering only; UpdatedAt is what reconciliation compares.
type LibraryItem struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OriginalFileName string    `json:"originalFileName"`
	SizeBytes        int64     `json:"sizeBytes"`
	DateAdded        time.Time `json:"dateAdded"`
	LastOpened       time.Time `json:"lastOpened"`
	UpdatedAt        time.Time `json:"updatedAt"`
	TotalPages       int       `json:"totalPages"`
	LastPage         int       `json:"lastPage"`
	ProgressPercent  int       `json:"progressPercent"`
	Subject          string    `json:"subject,omitempty"`
	ClassLevel       string    `json:"classLevel,omitempty"`
	CollectionName   string    `json:"collectionName,omitempty"`
	ChapterNumber    string    `json:"chapterNumber,omitempty"`
	Workspace        string    `json:"workspace,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	RemoteFileID     string    `json:"remoteFileId,omitempty"`
	LocalDataKey     string    `json:"localDataKey"`
	ContentHash      string    `json:"contentHash,omitempty"`
}

func (i *LibraryItem) RecordID() string           { return i.ID }
func (i *LibraryItem) RecordUpdatedAt() time.Time { return i.UpdatedAt }

// Progress returns round(lastPage/totalPages*100), or 0 without a page count.
func Progress(lastPage, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	return int(math.Round(float64(lastPage) / float64(totalPages) * 100))
}

// Normalize recomputes derived fields: ProgressPercent and the tag set.
func (i *LibraryItem) Normalize() {
	i.ProgressPercent = Progress(i.LastPage, i.TotalPages)
	i.Tags = NormalizeTags(i.Tags)
}

// NormalizeTags returns tags as a sorted set without empty values.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Clone returns a deep copy of i.
func (i *LibraryItem) Clone() *LibraryItem {
	c := *i
	c.Tags = slices.Clone(i.Tags)
	return &c
}

// SortByLastOpened orders items most recently opened first; ties fall back
// to name, then id, so the order is stable across calls.
func SortByLastOpened(items []*LibraryItem) {
	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if !x.LastOpened.Equal(y.LastOpened) {
			return x.LastOpened.After(y.LastOpened)
		}
		if x.Name != y.Name {
			return x.Name < y.Name
		}
		return x.ID < y.ID
	})
}

// ItemDetails holds the user-editable metadata of an item. Nil fields are
// left unchanged.
type ItemDetails struct {
	Name           *string
	Subject        *string
	ClassLevel     *string
	CollectionName *string
	ChapterNumber  *string
	Workspace      *string
	Tags           []string
	TotalPages     *int
}

// Apply copies the set fields of d onto i.
func (d ItemDetails) Apply(i *LibraryItem) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&i.Name, d.Name)
	set(&i.Subject, d.Subject)
	set(&i.ClassLevel, d.ClassLevel)
	set(&i.CollectionName, d.CollectionName)
	set(&i.ChapterNumber, d.ChapterNumber)
	set(&i.Workspace, d.Workspace)
	if d.Tags != nil {
		i.Tags = slices.Clone(d.Tags)
	}
	if d.TotalPages != nil {
		i.TotalPages = *d.TotalPages
	}
}
