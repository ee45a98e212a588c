package main

import (
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/database"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log.Printf("Connecting to %s database %s@%s",
		env.GetEnv("DB_DRIVER", "mysql"),
		env.GetEnv("DB_NAME", env.GetEnv("DB_PATH", "saasfox.db")),
		env.GetEnv("DB_HOST", "127.0.0.1"),
	)

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	switch os.Args[1] {
	case "up":
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Schema is up to date")

	case "status":
		missing := status(db)
		if missing > 0 {
			os.Exit(2)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

// status prints one line per model table and returns how many are missing.
func status(db *gorm.DB) int {
	missing := 0
	for _, model := range database.Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			log.Fatalf("Failed to inspect %T: %v", model, err)
		}
		state := "ok"
		if !db.Migrator().HasTable(model) {
			state = "missing"
			missing++
		}
		fmt.Printf("  %-28s %s\n", stmt.Schema.Table, state)
	}
	return missing
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - create or update all tables")
	fmt.Println("  status - list the tables and whether they exist")
}
