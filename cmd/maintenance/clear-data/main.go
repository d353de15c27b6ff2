package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/config"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/storage"
)

// resortTables are emptied by a full clear, users last unless -keep-users
var resortTables = []string{
	"payments",
	"bookings",
	"memberships",
	"contacts",
	"otp_verifications",
	"otp_rate_limits",
	"password_reset_tokens",
	"audit_logs",
}

func main() {
	var (
		dbURL     string
		before    string
		keepUsers bool
		yes       bool
	)
	flag.StringVar(&dbURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&before, "before", "", "only delete bookings dated before this YYYY-MM-DD, with their payments and proof files")
	flag.BoolVar(&keepUsers, "keep-users", false, "keep user accounts on a full clear")
	flag.BoolVar(&yes, "yes", false, "confirm the deletion")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Server.Environment == "production" && before == "" {
		logger.Fatal("Refusing a full clear when ENVIRONMENT=production; use -before to prune old bookings")
	}
	if !yes {
		fmt.Fprintln(os.Stderr, "Nothing deleted. Re-run with -yes to confirm")
		os.Exit(1)
	}

	cfg.Database.MaxConnections, cfg.Database.MaxIdleConnections = 2, 1
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if before != "" {
		cutoff, err := time.Parse(models.DateLayout, before)
		if err != nil {
			logger.Fatalf("-before must be YYYY-MM-DD: %v", err)
		}
		store, err := storage.NewDiskStore(cfg.Upload.Dir)
		if err != nil {
			logger.Fatalf("Failed to open upload directory: %v", err)
		}
		if err := pruneBookings(db, store, cutoff, logger); err != nil {
			logger.Fatalf("Prune failed: %v", err)
		}
		return
	}

	tables := resortTables
	if !keepUsers {
		tables = append(tables, "users")
	}
	if _, err := db.Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"); err != nil {
		logger.Fatalf("Failed to truncate tables: %v", err)
	}

	for _, table := range tables {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			logger.WithError(err).WithField("table", table).Warn("Count failed")
			continue
		}
		fmt.Printf("%-22s %d\n", table, count)
	}
}

// pruneBookings deletes bookings dated before cutoff. Payments go with them
// through ON DELETE CASCADE; proof screenshots are removed from disk after
// the rows are gone.
func pruneBookings(db database.DB, store *storage.DiskStore, cutoff time.Time, logger *logrus.Logger) error {
	rows, err := db.Query(`
		DELETE FROM bookings b
		USING payments p
		WHERE p.booking_id = b.id AND b.date < $1
		RETURNING p.screenshot_ref`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete bookings with payments: %w", err)
	}
	var (
		refs        []string
		withPayment int
	)
	for rows.Next() {
		withPayment++
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return err
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	result, err := db.Exec(`DELETE FROM bookings WHERE date < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete bookings: %w", err)
	}
	withoutPayment, _ := result.RowsAffected()

	for _, ref := range refs {
		if err := store.Remove(ref); err != nil {
			logger.WithError(err).WithField("ref", ref).Warn("Proof file left behind")
		}
	}

	logger.WithFields(logrus.Fields{
		"before":          cutoff.Format(models.DateLayout),
		"with_payment":    withPayment,
		"without_payment": withoutPayment,
		"proof_files":     len(refs),
	}).Info("Old bookings pruned")
	return nil
}
