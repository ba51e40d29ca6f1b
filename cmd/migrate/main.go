package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

const migrationSource = "file://migrations"

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	m, err := migrate.New(migrationSource, databaseURL())
	if err != nil {
		log.Fatalf("Failed to initialize migration: %v", err)
	}

	err = runCommand(m, command, os.Args[2:])
	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		log.Printf("Failed to close migration resources: %v, %v", sourceErr, dbErr)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
}

func runCommand(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		return runUp(m)
	case "down":
		return runDown(m)
	case "goto":
		return runGoto(m, args)
	case "status":
		return runStatus(m)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// databaseURL builds the migrate-compatible DSN. multiStatements is needed
// because the migration files contain several DDL statements each.
func databaseURL() string {
	user := env.GetEnv("DB_USER", "memberfox")
	host := env.GetEnv("DB_HOST", "db")
	port := env.GetEnv("DB_PORT", "3306")
	name := env.GetEnv("DB_NAME", "memberfox_db")
	log.Printf("Connecting to database: %s@%s:%s/%s", user, host, port, name)
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		user, env.GetEnv("DB_PASSWORD", "memberfox"), host, port, name)
}

func runUp(m *migrate.Migrate) error {
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("No changes: database is already up to date")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		log.Println("Migrations applied successfully")
	}
	return nil
}

func runDown(m *migrate.Migrate) error {
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to roll back the last migration: %w", err)
	}
	log.Println("Last migration rolled back successfully")
	return nil
}

func runGoto(m *migrate.Migrate, args []string) error {
	if len(args) < 1 {
		return errors.New("please provide a version number")
	}
	version, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version number: %w", err)
	}

	switch err := m.Migrate(uint(version)); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Printf("No changes: database is already at version %d", version)
	case err != nil:
		return fmt.Errorf("failed to migrate to version %d: %w", version, err)
	default:
		log.Printf("Migrated to version %d successfully", version)
	}
	return nil
}

func runStatus(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("No migrations have been applied yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	log.Printf("Current migration version: %d (%s)", version, state)
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Available commands:")
	fmt.Println("  up     - Apply all pending migrations")
	fmt.Println("  down   - Roll back the most recent migration")
	fmt.Println("  goto N - Migrate to version N")
	fmt.Println("  status - Show the current migration version")
}
