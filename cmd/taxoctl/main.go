// Package main is taxoctl, the offline administration tool for the
// category engine. It runs the operations that should not sit inside user
// request traffic: path backfill, synthetic tree seeding, cache warmup,
// and statistics inspection.
//
// Usage:
//
//	taxoctl backfill [-chunk 500] [-dry-run]
//	taxoctl seed -total 10000 [-depth 5] [-siblings 3] [-dist balanced] [-seed 42] [-dry-run]
//	taxoctl warmup
//	taxoctl stats
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"taxonomy/internal/cache"
	"taxonomy/internal/config"
	"taxonomy/internal/database"
	"taxonomy/internal/gen"
	"taxonomy/internal/repair"
	"taxonomy/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "backfill":
		err = runBackfill(ctx, db, os.Args[2:])
	case "seed":
		err = runSeed(ctx, db, os.Args[2:])
	case "warmup":
		err = runWarmup(ctx, db, cfg)
	case "stats":
		err = runStats(ctx, db, cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: taxoctl <backfill|seed|warmup|stats> [flags]")
}

// runBackfill recomputes path/depth for rows that disagree with their
// parent_id chain.
func runBackfill(ctx context.Context, db *sql.DB, args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	chunk := fs.Int("chunk", 500, "rows per update statement")
	dryRun := fs.Bool("dry-run", false, "report changes without writing")
	fs.Parse(args)

	report, err := repair.NewBackfiller(db).Run(ctx, *chunk, *dryRun)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// runSeed builds and bulk-loads a synthetic category tree.
func runSeed(ctx context.Context, db *sql.DB, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	total := fs.Int("total", 1000, "number of categories to generate")
	depth := fs.Int("depth", 5, "maximum tree depth")
	siblings := fs.Int("siblings", 2, "average siblings per node")
	dist := fs.String("dist", "balanced", "distribution: balanced, random, linear")
	seed := fs.Int64("seed", 0, "random seed (0 derives one from the spec)")
	dryRun := fs.Bool("dry-run", false, "validate and summarize without inserting")
	preview := fs.Int("preview", 0, "print a preview graph of up to N nodes")
	fs.Parse(args)

	plan, err := gen.Build(gen.Spec{
		Total:       *total,
		MaxDepth:    *depth,
		AvgSiblings: *siblings,
		Dist:        gen.Distribution(*dist),
		Seed:        *seed,
	})
	if err != nil {
		return err
	}

	summary, err := gen.NewInserter(db).Insert(ctx, plan, *dryRun)
	if err != nil {
		return err
	}
	if *preview > 0 {
		if err := printJSON(plan.Preview(*preview)); err != nil {
			return err
		}
	}
	return printJSON(summary)
}

// runWarmup populates the tree, root-id, and statistics cache entries.
func runWarmup(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer client.Close()

	st := store.NewCategoryStore(db, cfg.MaxPerPage)
	return cache.NewCategoryCache(client, cfg.CacheTTL).Warmup(ctx, st)
}

// runStats prints aggregate tree statistics.
func runStats(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	st := store.NewCategoryStore(db, cfg.MaxPerPage)
	stats, err := st.Statistics(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// printJSON writes an indented JSON document to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
