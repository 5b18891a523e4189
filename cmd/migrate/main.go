package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/config"
	"ms-admission/internal/database"
	"ms-admission/internal/database/migrations"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	ticket_db "ms-admission/internal/tickets/db"
)

func main() {
	up := flag.Bool("up", false, "apply all pending migrations")
	down := flag.Bool("down", false, "roll back all migrations")
	to := flag.Int("to", -1, "migrate to a specific version")
	seed := flag.Bool("seed", false, "insert demo passes after migrating")
	flag.Parse()

	log, err := logger.NewLogger("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Debug("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, log)
	switch {
	case *down:
		err = runner.MigrateDown()
	case *to >= 0:
		err = runner.MigrateTo(uint(*to))
	case *up || *seed:
		err = runner.RunMigrations()
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}

	version, dirty, err := runner.Version()
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", fmt.Sprintf("Schema at version %d (dirty=%t)", version, dirty))

	if *seed {
		n, err := seedPasses(ctx, bunDB, time.Now())
		if err != nil {
			log.Fatal("SEED", err.Error())
		}
		log.Info("SEED", fmt.Sprintf("Inserted %d demo passes", n))
	}
}

// seedPasses inserts a small set of demo passes. Existing pass numbers are skipped so the
// command can be rerun.
func seedPasses(ctx context.Context, bunDB *bun.DB, now time.Time) (int, error) {
	store := &ticket_db.DB{Bun: bunDB}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	lapsed := today.AddDate(-2, 0, 0)
	previous := "DEMO-001"
	note := "demo data"

	passes := []models.Ticket{
		{PassNumber: "DEMO-001", Age: 34, Gender: models.GenderFemale, TicketType: models.TicketTypeAdult, StartDate: today},
		{PassNumber: "DEMO-002", Age: 9, Gender: models.GenderMale, TicketType: models.TicketTypeChild, StartDate: today},
		{PassNumber: "DEMO-003", Age: 71, Gender: models.GenderOther, TicketType: models.TicketTypeAdult, StartDate: today},
		{PassNumber: "DEMO-004", Age: 40, Gender: models.GenderMale, TicketType: models.TicketTypeAdult, StartDate: lapsed},
		{PassNumber: "DEMO-005", Age: 35, Gender: models.GenderFemale, TicketType: models.TicketTypeAdult, StartDate: today,
			IsTransfer: true, PreviousPassNumber: &previous},
	}

	inserted := 0
	for i := range passes {
		p := &passes[i]
		p.ExpiryDate = models.ExpiryFor(p.StartDate)
		p.Remarks = &note
		p.CreatedAt = now.UTC()
		p.UpdatedAt = now.UTC()

		err := store.CreateTicket(ctx, p)
		if apperrors.IsKind(err, apperrors.KindConflict) {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
