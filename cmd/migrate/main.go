package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"newsletteradmin/internal/config"
	"newsletteradmin/migrations"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

var commands = map[string]func(context.Context, *goose.Provider) error{
	"up":     runUp,
	"down":   runDown,
	"status": showMigrationStatus,
	"reset":  runReset,
}

func main() {
	printInfo("=== Newsletter Admin Migration Runner ===\n")

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	run, ok := commands[command]
	if !ok {
		printUsage()
		if command != "help" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// Connect to database
	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		printError(fmt.Sprintf("Failed to load migrations: %v", err))
		os.Exit(1)
	}

	if err := run(context.Background(), provider); err != nil {
		printError(fmt.Sprintf("%s failed: %v", command, err))
		os.Exit(1)
	}

	printInfo("\n✨ Operation completed successfully!")
}

func runUp(ctx context.Context, provider *goose.Provider) error {
	printInfo("Applying pending migrations...\n")

	results, err := provider.Up(ctx)
	printResults(results)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		printSuccess("✓ Database is up to date")
		return nil
	}
	printSuccess(fmt.Sprintf("\n✓ Successfully applied %d migration(s)", len(results)))
	return nil
}

func runDown(ctx context.Context, provider *goose.Provider) error {
	printWarning("Rolling back the last migration...\n")

	result, err := provider.Down(ctx)
	if result != nil {
		printResults([]*goose.MigrationResult{result})
	}
	if err != nil {
		return err
	}

	printSuccess("\n✓ Rollback complete")
	return nil
}

func runReset(ctx context.Context, provider *goose.Provider) error {
	printWarning("Rolling back all migrations...\n")

	results, err := provider.DownTo(ctx, 0)
	printResults(results)
	if err != nil {
		return err
	}

	return runUp(ctx, provider)
}

func showMigrationStatus(ctx context.Context, provider *goose.Provider) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		printWarning("No migration files embedded")
		return nil
	}

	fmt.Printf("%s%-10s %-40s %-12s %-20s%s\n",
		colorBold, "VERSION", "NAME", "STATUS", "APPLIED AT", colorReset)
	fmt.Println(strings.Repeat("-", 85))

	appliedCount := 0
	for _, s := range statuses {
		status := "pending"
		statusColor := colorYellow
		appliedAt := "-"

		if s.State == goose.StateApplied {
			status = "applied"
			statusColor = colorGreen
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			appliedCount++
		}

		fmt.Printf("%-10s %-40s %s%-12s%s %-20s\n",
			fmt.Sprintf("%05d", s.Source.Version), migrationName(s.Source.Path),
			statusColor, status, colorReset, appliedAt)
	}

	fmt.Println(strings.Repeat("-", 85))
	printInfo(fmt.Sprintf("\nSummary: %d/%d migrations applied", appliedCount, len(statuses)))
	return nil
}

func printResults(results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		name := fmt.Sprintf("%05d_%s", r.Source.Version, migrationName(r.Source.Path))
		if r.Error != nil {
			printError(fmt.Sprintf("  ✗ %s %s: %v", r.Direction, name, r.Error))
			continue
		}
		printSuccess(fmt.Sprintf("  ✓ %s %s (%s)", r.Direction, name, r.Duration))
	}
}

// migrationName strips the version prefix and extension from a file name
func migrationName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

// Helper functions for colored output

func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

func printUsage() {
	fmt.Println("Usage: migrate [command]")
	fmt.Println("\nCommands:")
	fmt.Println("  up       - Apply all pending migrations")
	fmt.Println("  down     - Rollback the last applied migration")
	fmt.Println("  status   - Show current migration status")
	fmt.Println("  reset    - Rollback all migrations and reapply them")
	fmt.Println("  help     - Show this help message")
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./cmd/migrate up")
	fmt.Println("  go run ./cmd/migrate status")
	fmt.Println("\nNotes:")
	fmt.Println("  - Migrations are embedded from migrations/*.sql")
	fmt.Println("  - Applied versions are tracked in the 'goose_db_version' table")
	fmt.Println("  - Seed data lives in cmd/seeder")
}
