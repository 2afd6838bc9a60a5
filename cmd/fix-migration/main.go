// Package main repairs a dirty migration state. Dirty state occurs when
// golang-migrate marks a version as in progress and the process is interrupted
// before it completes; the server then refuses to start with "Dirty database
// version". This tool clears the flag, keeping the recorded version unless
// -version says otherwise, so the next startup can retry cleanly.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db"
)

func main() {
	target := flag.Int("version", -1, "version to record (defaults to the current one)")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to check migration state: %v", err)
	}
	log.Printf("Current migration state: version=%d, dirty=%v", version, dirty)

	if !dirty && *target < 0 {
		log.Println("Migration state is already clean")
		return
	}

	force := int(version) // #nosec G115 -- migration versions are small
	if *target >= 0 {
		force = *target
	}
	if err := db.ForceMigrationVersion(database, force); err != nil {
		log.Fatalf("Failed to fix migration state: %v", err)
	}

	version, dirty, err = db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to check final migration state: %v", err)
	}
	log.Printf("Final migration state: version=%d, dirty=%v", version, dirty)
}
