// Package database provides the SQLite connection used by the snapshot store.
//
// It handles opening the file with WAL mode and a busy timeout, health
// checks, and applying the embedded schema migrations. Migration files are
// named YYYYMMDD_HHMMSS_description.up.sql with a matching .down.sql and
// are registered by the migrations package:
//
//	import _ "github.com/nerrad567/webstone-core/migrations"
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
