// Package database provides the SQLite connection used for local reading
// history.
//
// Schema changes are plain SQL files embedded by the migrations package and
// applied in version order at startup:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The connection pool is limited to a single connection; SQLite serialises
// writers anyway and WAL mode keeps reads cheap.
package database
