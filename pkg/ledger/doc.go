// Package ledger tracks table credits and promo codes.
//
// Every [table]-marked region in an export costs one credit. A fresh ledger
// starts with [DefaultCredits]. Credits are topped up by redeeming promo
// codes, which administrators create after unlocking admin mode with a
// shared secret. A reset code restores the default balance.
//
// State lives in any [cache.Cache] backend under keys from a [cache.Keyer],
// so the CLI keeps it in the file cache while the server can share it
// through Redis, MongoDB or SQLite. Operations on one Ledger are serialized;
// two processes sharing a backend are not coordinated.
//
// [Ledger] implements the export quota:
//
//	l := ledger.New(store, cache.NewDefaultKeyer(), ledger.Options{})
//	exp := &export.Exporter{Quota: l}
package ledger
