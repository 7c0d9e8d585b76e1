// Package store is the persistence collaborator: durable storage for
// attempt snapshots handed over on Commit and Terminate.
//
// Storage is SQLite in WAL mode. A snapshot save replaces the attempt's
// previous state wholesale inside one transaction; partial snapshots are
// never visible to readers. The engine treats SaveSnapshot as a
// fire-and-forget hand-off, so this package owns all durability concerns.
package store
