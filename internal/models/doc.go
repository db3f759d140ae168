// Package models defines persisted entities and the repository contract for the musicman backend.
//
// Sessions themselves are never persisted. The only stored entity is [SessionEvent], an audit trail of
// logins, refreshes, logouts and sweeps written by the repositories package and read by the CLI.
//
// All persistent entities implement [Model]; [Repository] defines the data access operations.
package models
