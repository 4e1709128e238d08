package common

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque identifier for items, hubs and cached queries.
func NewID() string {
	return uuid.NewString()
}

// CacheKey is the deterministic key of a per-page response cache entry.
func CacheKey(itemID string, page int) string {
	return fmt.Sprintf("%s_page_%d", itemID, page)
}

// PayloadKey is the LocalStore key under which an item's binary payload lives.
func PayloadKey(itemID string) string {
	return "pdf_" + itemID
}

// EstimateTokens approximates the language-model token count of the given
// texts at four characters per token, rounded up.
func EstimateTokens(texts ...string) int {
	n := 0
	for _, t := range texts {
		n += utf8.RuneCountInString(t)
	}
	return (n + 3) / 4
}

// CacheFileName is the remote file name of a response cache entry.
func CacheFileName(itemID string, page int) string {
	return CacheKey(itemID, page) + ".json"
}

// PageIndexFileName is the remote file name of an item's page keyword index.
func PageIndexFileName(itemID string) string {
	return itemID + "_index.json"
}
