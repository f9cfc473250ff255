package sqlite

import (
	"fmt"
	"io"
	"log"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching. Output
// for the user goes to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("migrate: missing action")
	}

	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	// Open without migrating; the action decides what happens to the schema.
	store, err := Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := store.MigrateUp(); err != nil {
			return err
		}
	case "down":
		log.Printf("Rolling back one migration...")
		if err := store.MigrateDown(); err != nil {
			return err
		}
	case "version", "status":
	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := store.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "WARNING: database is in a dirty state; a migration failed mid-execution")
	}
	return nil
}

// PrintMigrateHelp prints the usage of the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: mtpc-reco [-db path] migrate <action>

Actions:
  up        apply all pending migrations
  down      roll back the most recent migration
  version   print the current schema version
  help      show this help
`)
}
