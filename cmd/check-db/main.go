// Package main is a diagnostic tool for database connectivity. It connects with
// the server's configuration, prints the schema version and the row count of
// each table, and exits non-zero on any failure so it can gate a deployment
// step on a reachable, migrated database.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db"
)

var tables = []string{"users", "ongs", "ong_members", "animals"}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)

	sqlxDB := sqlx.NewDb(database, "postgres")
	fmt.Println("\n=== ROW COUNTS ===")
	for _, table := range tables {
		var n int
		// #nosec G202 -- table names come from the constant list above
		if err := sqlxDB.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
			log.Fatalf("Query on %s failed: %v", table, err)
		}
		fmt.Printf("%-12s %d\n", table, n)
	}

	var orphans int
	if err := sqlxDB.Get(&orphans, "SELECT COUNT(*) FROM animals WHERE ong_id IS NULL"); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if orphans > 0 {
		fmt.Printf("\n%d animal(s) have no owning ONG\n", orphans)
	}

	var emptyOngs int
	err = sqlxDB.Get(&emptyOngs, `SELECT COUNT(*) FROM ongs o WHERE NOT EXISTS (SELECT 1 FROM ong_members m WHERE m.ong_id = o.id)`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if emptyOngs > 0 {
		fmt.Printf("%d ONG(s) have no members\n", emptyOngs)
	}
}
