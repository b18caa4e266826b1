// Package storage defines the Store interface over projects, versions,
// users, API keys and roles, and provides the in-memory and SQLite
// backends plus an in-process LRU read cache. The PostgreSQL backend and
// its Redis cache layer live in the postgres subpackage.
//
// Stores enforce identity and uniqueness (duplicate projects, duplicate
// version names within a project, duplicate user names) and surface the
// typed errors from pkg/registry. Version collections are returned in
// natural order, so "latest" resolution needs no extra state.
package storage
