// Command backup runs one backup operation for one identifier and prints the result as JSON.
//
//	backup [-log-level info] metadata|files|full <identifier>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/app"
	"github.com/cesargomez89/archivebackup/internal/config"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/store"
)

func main() {
	logLevel := flag.String("log-level", "", "override LOG_LEVEL")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] metadata|files|full <identifier>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0), flag.Arg(1), *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "backup:", err)
		os.Exit(1)
	}
}

func run(operation, identifier, logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLogger := logger.New(logger.Config{
		Output: os.Stderr,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := app.NewServices(cfg, db, appLogger)

	var result interface{}
	switch operation {
	case "metadata":
		result, err = services.Backup.BackupMetadata(ctx, identifier)
	case "files":
		result, err = services.Backup.BackupFiles(ctx, identifier)
	case "full":
		result, err = services.Backup.BackupFull(ctx, identifier)
	default:
		return fmt.Errorf("unknown operation %q", operation)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
