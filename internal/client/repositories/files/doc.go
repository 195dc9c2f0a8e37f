// Package files caches the backend's file records on the client, with their
// decrypted immutable metadata and both magic metadata tiers.
//
// Rows are keyed by (file id, collection id): a file linked into several
// collections has one row per collection. Magic tiers belong to the file
// and are shared by all of its rows; a provisional flag marks tiers written
// locally and not yet confirmed by a sync.
//
// SQLiteRepository implements Repository over dbx.DBTX and also satisfies
// magic.Cache.
package files
