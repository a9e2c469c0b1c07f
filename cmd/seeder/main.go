package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"newsletteradmin/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	instancesCount   = flag.Int("instances", 2, "Number of instances to create (max 3)")
	newslettersCount = flag.Int("newsletters", 3, "Number of newsletters to create (max 4)")
	listPrefix       = flag.String("list-prefix", "list", "Prefix for seeded default list ids")
	clearData        = flag.Bool("clear", false, "Clear existing seed data before inserting")
	showHelp         = flag.Bool("help", false, "Show usage information")
)

type seedInstance struct {
	shortname string
	title     string
}

var instances = []seedInstance{
	{shortname: "emrap", title: "EM:RAP"},
	{shortname: "cprap", title: "C3"},
	{shortname: "ucmaxx", title: "UCMAXX"},
}

type seedSegment struct {
	title     string
	shortname string
	size      int
}

// Every instance gets the same segments. The empty one renders as a
// divider in the editor.
var segments = []seedSegment{
	{title: "All Subscribers", shortname: "all", size: 1250},
	{title: "Members", shortname: "members", size: 430},
	{title: "Lapsed Members", shortname: "lapsed", size: 1},
	{title: "Residents", shortname: "residents", size: 0},
}

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	printInfo("=== Newsletter Admin Database Seeder ===\n")

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

	if *clearData {
		if err := clearSeedData(db); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
	}

	instanceIDs, err := seedInstances(db, *instancesCount, cfg.Mailing.DefaultListSetting)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed instances: %v", err))
		os.Exit(1)
	}

	segmentsCreated, err := seedSegments(db, instanceIDs)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed segments: %v", err))
		os.Exit(1)
	}

	newslettersCreated, err := seedNewsletters(db, instanceIDs, *newslettersCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed newsletters: %v", err))
		os.Exit(1)
	}

	printInfo("\n=== Seeding Summary ===")
	printSuccess(fmt.Sprintf("✓ Instances available: %d", len(instanceIDs)))
	printSuccess(fmt.Sprintf("✓ Segments created: %d", segmentsCreated))
	printSuccess(fmt.Sprintf("✓ Newsletters created: %d", newslettersCreated))
	printInfo("\nSeeding completed successfully!")
}

// clearSeedData removes rows belonging to the seeded instances
func clearSeedData(db *sql.DB) error {
	printWarning("Clearing existing seed data...")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	shortnames := make([]interface{}, 0, len(instances))
	for _, inst := range instances {
		shortnames = append(shortnames, inst.shortname)
	}

	statements := []string{
		"DELETE FROM newsletters WHERE instance IN (SELECT id FROM instances WHERE shortname IN ($1, $2, $3))",
		"DELETE FROM campaign_segments WHERE instance IN (SELECT id FROM instances WHERE shortname IN ($1, $2, $3))",
		"DELETE FROM instances WHERE shortname IN ($1, $2, $3)",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, shortnames...); err != nil {
			return fmt.Errorf("failed to clear seed data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	printSuccess("✓ Seed data cleared\n")
	return nil
}

// seedInstances upserts instances and their default list setting
func seedInstances(db *sql.DB, count int, listSetting string) ([]int, error) {
	if count > len(instances) {
		count = len(instances)
	}
	printInfo(fmt.Sprintf("Seeding %d instances...", count))

	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		inst := instances[i]

		var id int
		err := db.QueryRow(`
			INSERT INTO instances (shortname, title)
			VALUES ($1, $2)
			ON CONFLICT (shortname) DO UPDATE SET title = EXCLUDED.title
			RETURNING id
		`, inst.shortname, inst.title).Scan(&id)
		if err != nil {
			return ids, fmt.Errorf("failed to insert instance %s: %w", inst.shortname, err)
		}

		_, err = db.Exec(`
			INSERT INTO instance_config_settings (name, instance, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, instance) DO NOTHING
		`, listSetting, id, fmt.Sprintf("%s-%s", *listPrefix, inst.shortname))
		if err != nil {
			return ids, fmt.Errorf("failed to insert list setting for %s: %w", inst.shortname, err)
		}

		ids = append(ids, id)
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d instances with %s settings", len(ids), listSetting))
	return ids, nil
}

// seedSegments inserts the segment set for each instance, skipping existing ones
func seedSegments(db *sql.DB, instanceIDs []int) (int, error) {
	printInfo(fmt.Sprintf("Seeding segments for %d instances...", len(instanceIDs)))

	created := 0
	for _, instanceID := range instanceIDs {
		for order, seg := range segments {
			result, err := db.Exec(`
				INSERT INTO campaign_segments (title, shortname, cached_segment_size, instance, displayorder)
				SELECT $1::varchar, $2::varchar, $3::int, $4::int, $5::int
				WHERE NOT EXISTS (
					SELECT 1 FROM campaign_segments WHERE shortname = $2 AND instance = $4
				)
			`, seg.title, seg.shortname, seg.size, instanceID, order)
			if err != nil {
				return created, fmt.Errorf("failed to insert segment %s: %w", seg.shortname, err)
			}

			rowsAffected, _ := result.RowsAffected()
			if rowsAffected > 0 {
				created++
			}
		}
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d segments (skipped %d existing)", created, len(instanceIDs)*len(segments)-created))
	return created, nil
}

// seedNewsletters adds drafts and one scheduled newsletter to the first instance
func seedNewsletters(db *sql.DB, instanceIDs []int, count int) (int, error) {
	if len(instanceIDs) == 0 {
		return 0, nil
	}
	printInfo(fmt.Sprintf("Seeding %d newsletters...", count))

	newsletters := []struct {
		subject  string
		segment  string
		html     string
		sendDate *time.Time
	}{
		{
			subject: "March Update",
			segment: "all",
			html:    "<p>Hello *|FNAME|*, here is what's new this month.</p>",
		},
		{
			subject: "Member Exclusive",
			segment: "members",
			html:    "<p>Thanks for being a member, *|FNAME|*.</p>",
		},
		{
			subject:  "Conference Reminder",
			segment:  "all",
			html:     "<p>The conference starts next week.</p>",
			sendDate: timePtr(time.Now().Add(72 * time.Hour)),
		},
		{
			subject: "We Miss You",
			segment: "lapsed",
			html:    "<p>Come back, *|FNAME|*.</p>",
		},
	}

	instanceID := instanceIDs[0]
	created := 0
	for i := 0; i < count && i < len(newsletters); i++ {
		n := newsletters[i]

		result, err := db.Exec(`
			INSERT INTO newsletters (subject, html_content, text_content, campaign_segment, instance, send_date)
			SELECT $1::varchar, $2::text, '', s.id, $3::int, $4::timestamp
			FROM campaign_segments s
			WHERE s.shortname = $5 AND s.instance = $3
			AND NOT EXISTS (SELECT 1 FROM newsletters WHERE subject = $1 AND instance = $3)
		`, n.subject, n.html, instanceID, n.sendDate, n.segment)
		if err != nil {
			return created, fmt.Errorf("failed to insert newsletter %s: %w", n.subject, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected > 0 {
			created++
		}
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d newsletters (skipped %d existing)", created, count-created))
	return created, nil
}

// Helper functions

func timePtr(t time.Time) *time.Time {
	return &t
}

// printSuccess prints a success message in green
func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

// printError prints an error message in red
func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

// printInfo prints an info message in cyan
func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

// printWarning prints a warning message in yellow
func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

// printUsage displays usage information
func printUsage() {
	printInfo("=== Newsletter Admin Database Seeder ===\n")
	fmt.Println("Usage: go run ./cmd/seeder [flags]")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./cmd/seeder")
	fmt.Println("  go run ./cmd/seeder -instances=3 -newsletters=4")
	fmt.Println("  go run ./cmd/seeder -clear")
	fmt.Println("\nNotes:")
	fmt.Println("  - Run ./cmd/migrate up first")
	fmt.Println("  - The seeder is idempotent - running it again won't create duplicates")
	fmt.Println("  - Each instance gets a default list setting named by DEFAULT_LIST_SETTING")
}
