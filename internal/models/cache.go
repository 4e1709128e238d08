package models

import "time"

// CachedQuery is one answered question on a page.
type CachedQuery struct {
	QueryID            string    `json:"queryId"`
	Question           string    `json:"question"`
	Mode               string    `json:"mode"`
	Context            string    `json:"context,omitempty"`
	Response           string    `json:"response"`
	Timestamp          time.Time `json:"timestamp"`
	TokensUsedEstimate int       `json:"tokensUsedEstimate"`
}

// CacheEntry groups the queries asked on one page of one item. Queries are
// only ever appended.
type CacheEntry struct {
	ItemID       string        `json:"itemId"`
	Page         int           `json:"page"`
	PageContent  string        `json:"pageContent,omitempty"`
	Queries      []CachedQuery `json:"queries"`
	LastAccessed time.Time     `json:"lastAccessed"`
}
