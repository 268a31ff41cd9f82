// Command aprsctl runs maintenance tasks against the archive database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"cloudpico-aprs/internal/archive"
	"cloudpico-aprs/internal/config"
	"cloudpico-aprs/internal/db"
	"cloudpico-aprs/internal/logging"
	"cloudpico-aprs/internal/migrate"
)

var version = "dev"

const usage = `usage: %s <command>
  migrate        apply pending schema migrations
  prune          delete archive rows older than ARCHIVE_RETENTION
  beacons [n]    print the last n beacon attempts (default 10)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, "aprsctl")

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	ctx := context.Background()
	if err := run(ctx, cfg, logger, archive.NewRepository(conn), conn, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		_ = db.Close(conn)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, repo archive.Repository, conn *sql.DB, args []string) error {
	switch args[0] {
	case "migrate":
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "prune":
		p, err := archive.NewPruner(repo, cfg.ArchiveRetention, cfg.ArchivePruneSchedule, logger)
		if err != nil {
			return err
		}
		n, err := p.PruneOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d archive records\n", n)
	case "beacons":
		limit := 10
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid count %q", args[1])
			}
			limit = n
		}
		entries, err := repo.GetRecentBeacons(ctx, limit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}
