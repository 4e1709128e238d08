// Package records persists reconcilable records (library items and hubs) in
// the local store.
//
// Each row keeps the record JSON, its update time, a soft-delete flag and a
// pending flag. A pending record has local changes the remote manifest has
// not seen yet. A deleted record is a tombstone: it is hidden from reads but
// kept, with its remote file id, until the removal reaches the remote store.
//
// Typical usage
//
//	repo := records.NewSQLiteRepository[*models.LibraryItem](db, records.TableItems)
//	_ = repo.Put(ctx, item, true)
//	items, _ := repo.List(ctx)
//	_ = repo.MarkSynced(ctx, item.ID)
package records
