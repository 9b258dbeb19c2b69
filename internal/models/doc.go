// Package models defines the entities persisted by the bot and the store
// interfaces over them.
//
// # Token Records
//
// [TokenRecord] binds a chat-user identity to its Spotify credential bundle.
// There is at most one record per identity; refreshes mutate the record in
// place (via [TokenRecord.ApplyRefresh]) and re-persist the whole record.
//
// # Stores
//
// [TokenStore] and [StatsStore] are implemented twice in internal/repositories:
// an in-memory map (the default, matching the volatile storage of the original
// deployment) and a SQLite-backed variant selected by configuring a database
// path.
package models
