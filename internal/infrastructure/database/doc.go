// Package database provides the daemon's SQLite store.
//
// The store holds saved program slots and the run history. It is opened in
// WAL mode with a single connection, which matches SQLite's single-writer
// model and keeps concurrent API reads from failing with "database is
// locked".
//
// Migrations are embedded SQL files named
// YYYYMMDD_HHMMSS_description.up.sql (with an optional matching .down.sql).
// Each one is applied in its own transaction and recorded in
// schema_migrations.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
