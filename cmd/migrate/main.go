package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sopline.io/internal/migrate"
	"sopline.io/internal/obs"
	"sopline.io/migrations"
)

func main() {
	logger := obs.Logger()
	var (
		dsn     = flag.String("dsn", os.Getenv("SOPLINE_PG_DSN"), "PostgreSQL DSN")
		dir     = flag.String("dir", "", "read migrations from this directory instead of the embedded set")
		timeout = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	if *dsn == "" {
		logger.Fatal().Msg("missing DSN: provide via -dsn or SOPLINE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		logger.Fatal().Msg("usage: migrate [up|down|seed|status]")
	}

	var fsys fs.FS = migrations.Files
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	mgr := migrate.NewManager(db, fsys, migrations.SQLDir, migrations.SeedsDir)

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		var applied []string
		if applied, err = mgr.Up(ctx); err == nil {
			logger.Info().Strs("applied", applied).Msg("migrations_applied")
		}
	case "down":
		var name string
		if name, err = mgr.Down(ctx); err == nil {
			logger.Info().Str("rolled_back", name).Msg("migration_rolled_back")
		}
	case "seed":
		var seeded []string
		if seeded, err = mgr.Seed(ctx); err == nil {
			logger.Info().Strs("seeded", seeded).Msg("seeds_applied")
		}
	case "status":
		var applied, pending []string
		if applied, pending, err = mgr.Status(ctx); err == nil {
			for _, name := range applied {
				fmt.Println("applied ", name)
			}
			for _, name := range pending {
				fmt.Println("pending ", name)
			}
		}
	default:
		logger.Fatal().Str("command", cmd).Msg("unknown command")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migrate failed")
	}
}
