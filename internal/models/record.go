package models

import "time"

// Record is anything that can live in a manifest and be reconciled by id and
// update time.
type Record interface {
	RecordID() string
	RecordUpdatedAt() time.Time
}

// Normalizer is implemented by records that repair their own invariants after
// being decoded from a manifest another client may have written.
type Normalizer interface {
	Normalize()
}
