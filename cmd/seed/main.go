// seed creates the schema and provisions the seating chart.
//
//	seed                      default layout (rows A-L, 14 seats each)
//	seed --layout hall.yaml   layout from a YAML file
//	seed --reset              drop every registration and seat first
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/school-event-seating/internal/config"
	"github.com/iliyamo/school-event-seating/internal/database"
	"github.com/iliyamo/school-event-seating/internal/logger"
	"github.com/iliyamo/school-event-seating/internal/repository"
	"github.com/iliyamo/school-event-seating/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		layoutPath string
		reset      bool
		skipSchema bool
	)
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flags.StringVar(&layoutPath, "layout", "", "YAML seating layout (default: rows A-L)")
	flags.BoolVar(&reset, "reset", false, "delete all registrations and seats before seeding")
	flags.BoolVar(&skipSchema, "skip-schema", false, "do not create missing tables")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	config.LoadDotEnv()
	log := logger.New(os.Getenv("APP_ENV")).With("component", "seed")

	layout := seed.DefaultLayout()
	if layoutPath != "" {
		l, err := seed.LoadLayout(layoutPath)
		if err != nil {
			return err
		}
		layout = l
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbc := config.LoadDatabase()
	db, err := database.Open(ctx, database.Options{
		User: dbc.User, Pass: dbc.Pass,
		Host: dbc.Host, Port: dbc.Port, Name: dbc.Name,
		MaxOpenConns: 2,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if !skipSchema {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	n, err := seed.Provision(ctx, repository.NewMySQLStore(db), layout, reset)
	if errors.Is(err, seed.ErrChartExists) {
		log.Warn("seating chart already present, nothing to do; pass --reset to rebuild it")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("seating chart provisioned", "seats", n, "rows", len(layout.Rows), "blocked", len(layout.Blocked), "reset", reset)
	return nil
}
