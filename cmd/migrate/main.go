package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("bad usage")

// session is what a subcommand gets to work with. Migrator is nil for
// commands that only touch the migrations directory.
type session struct {
	log      *zap.Logger
	dir      string
	migrator *migration.Migrator
}

type subcommand struct {
	args    string
	summary string
	offline bool
	run     func(s *session, args []string) error
}

var subcommands = map[string]subcommand{
	"up": {summary: "Apply all pending migrations", run: func(s *session, _ []string) error {
		return s.migrator.Up()
	}},
	"down": {summary: "Roll back every migration", run: func(s *session, _ []string) error {
		return s.migrator.Down()
	}},
	"step": {args: "<n>", summary: "Apply n migrations (negative rolls back)", run: func(s *session, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return s.migrator.Steps(n)
	}},
	"version": {summary: "Print the applied version", run: func(s *session, _ []string) error {
		version, dirty, err := s.migrator.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			s.log.Info("Schema is empty")
			return nil
		}
		s.log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}},
	"force": {args: "<version>", summary: "Set the version without migrating (clears dirty)", run: func(s *session, args []string) error {
		version, err := intArg(args)
		if err != nil {
			return err
		}
		return s.migrator.Force(version)
	}},
	"create": {args: "<name> [desc]", summary: "Write a new up/down file pair", offline: true, run: func(s *session, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		var description string
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(s.dir, args[0], description)
		if err != nil {
			return err
		}
		s.log.Info("Migration files written",
			zap.Uint("version", mf.Version),
			zap.String("up", mf.UpPath),
			zap.String("down", mf.DownPath),
		)
		return nil
	}},
	"list": {summary: "List migrations on disk", offline: true, run: func(s *session, _ []string) error {
		entries, err := migration.ListMigrations(s.dir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			s.log.Info("Migrations directory is empty", zap.String("dir", s.dir))
			return nil
		}
		for _, e := range entries {
			fmt.Printf("  %06d  %s\n", e.Version, e.Name)
		}
		return nil
	}},
}

var commandOrder = []string{"up", "down", "step", "version", "force", "create", "list"}

func main() {
	dir := flag.String("path", "", "Migrations directory (default: ./migrations)")
	databaseURL := flag.String("database-url", "", "Postgres URL; overrides STOCK_DATABASE_* settings")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	s := &session{log: log}
	if s.dir, err = migrationsDir(*dir); err != nil {
		log.Fatal("Cannot resolve migrations directory", zap.Error(err))
	}

	if !cmd.offline {
		closeFn, err := s.connect(*databaseURL)
		if err != nil {
			log.Fatal("Cannot open migrator", zap.Error(err))
		}
		defer closeFn()
	}

	log.Debug("Running migration command", zap.String("command", name), zap.String("dir", s.dir))
	if err := cmd.run(s, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: migrate %s %s\n", name, cmd.args)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

// connect opens the migrator through databaseURL when set, otherwise
// through the configured database
func (s *session) connect(databaseURL string) (func(), error) {
	if databaseURL != "" {
		m, err := migration.NewFromURL(databaseURL, s.dir, s.log)
		if err != nil {
			return nil, err
		}
		s.migrator = m
		return s.closeMigrator, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Database.Host, err)
	}
	m, err := migration.New(db, s.dir, s.log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.migrator = m
	return func() {
		s.closeMigrator()
		_ = db.Close()
	}, nil
}

func (s *session) closeMigrator() {
	if err := s.migrator.Close(); err != nil {
		s.log.Warn("Closing migrator", zap.Error(err))
	}
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

// migrationsDir falls back to ./migrations, then to the repo root relative
// to the binary
func migrationsDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	if _, err := os.Stat(defaultMigrationsDir); err == nil {
		return filepath.Abs(defaultMigrationsDir)
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsDir)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return filepath.Abs(defaultMigrationsDir)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Stock ledger schema migrations")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range commandOrder {
		c := subcommands[name]
		fmt.Fprintf(out, "  %-22s %s\n", name+" "+c.args, c.summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}
