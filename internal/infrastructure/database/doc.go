// Package database provides the SQLite layer for Conductor's task
// execution history.
//
// It opens the database in WAL mode with a busy timeout, enforces
// owner-only file permissions, and runs embedded schema migrations
// (up/down SQL pairs shipped in the binary by the migrations
// package).
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns are nullable or defaulted, and
// columns are never dropped or renamed, so an older binary can still
// read a newer database. All queries use parameterised statements.
package database
