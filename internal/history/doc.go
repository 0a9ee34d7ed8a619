// Package history persists batch runs and per-file outcomes in SQLite.
//
// The database lives under the log directory by default and is opened in WAL
// mode so the CLI can read history while a run is writing. Writes retry on
// SQLITE_BUSY with exponential backoff. The schema is versioned; a database
// written by a different schema version is rejected with ErrSchemaMismatch
// and must be deleted.
package history
