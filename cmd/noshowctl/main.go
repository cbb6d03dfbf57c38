// Command noshowctl administers the users database: it applies migrations
// and creates accounts without going through the web form.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"noshow-predictor/internal/auth"
	"noshow-predictor/internal/config"
	"noshow-predictor/internal/logging"
	"noshow-predictor/internal/storage"

	"golang.org/x/term"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

const usage = `usage: noshowctl <command> [flags]

commands:
  migrate   apply pending database migrations
  adduser   create a user, prompting for the password
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return flag.ErrHelp
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(out)
	flags.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite or postgres)")
	flags.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN or sqlite file")

	switch args[0] {
	case "migrate":
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "adduser":
		username := flags.String("u", "", "username to create")
		flags.IntVar(&cfg.BcryptCost, "cost", cfg.BcryptCost, "bcrypt cost")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *username == "" {
			return errors.New("adduser: -u is required")
		}
		return addUser(ctx, cfg, *username, out)

	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func addUser(ctx context.Context, cfg *config.Config, username string, out io.Writer) error {
	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	authn, err := auth.NewAuthenticator(storage.NewUserStore(db), cfg.BcryptCost, logging.Discard())
	if err != nil {
		return err
	}

	fmt.Fprint(out, "Enter password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := authn.Register(ctx, username, string(password)); err != nil {
		return err
	}
	fmt.Fprintf(out, "user %q created\n", username)
	return nil
}
