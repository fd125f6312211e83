// Command ticketctl runs one-shot operator tasks against the ticket database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/lorrc/ticket-workflow/internal/app"
	"github.com/lorrc/ticket-workflow/internal/auth"
	"github.com/lorrc/ticket-workflow/internal/config"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/infrastructure/logging"
	"github.com/lorrc/ticket-workflow/migrations"
)

const usage = `usage: ticketctl <command> [flags]

commands:
  migrate     apply pending database migrations
  provision   ensure the ticket sequence for a year exists
  nightly     run the export, auto-process, import cycle once
  token       issue an access token for local testing
`

type command func(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error

var commands = map[string]command{
	"migrate":   runMigrate,
	"provision": runProvision,
	"nightly":   runNightly,
	"token":     runToken,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, config.Load); err != nil {
		fmt.Fprintln(os.Stderr, "ticketctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, load func() (*config.Config, error)) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	return cmd(ctx, cfg, args[1:], stdout)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: "ticketctl",
		Environment: cfg.App.Environment,
	})
}

// parseFlags parses args, treating --help as a successful no-op.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return true, nil
}

func runMigrate(_ context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if err := migrations.Up(cfg.Database.URL); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "migrations applied")
	return nil
}

func runProvision(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("provision", pflag.ContinueOnError)
	year := fs.IntP("year", "y", time.Now().UTC().Year(), "calendar year to provision")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if *year < 2000 || *year > 9999 {
		return fmt.Errorf("year out of range: %d", *year)
	}

	application, err := app.New(ctx, cfg, nil, newLogger(cfg))
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.ProvisionYear(ctx, *year); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sequence for %d provisioned\n", *year)
	return nil
}

func runNightly(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("nightly", pflag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Minute, "abort the run after this long")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	application, err := app.New(ctx, cfg, nil, newLogger(cfg))
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Automation.Run(ctx, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runToken(_ context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	userID := fs.String("user", "", "user ID (random when empty)")
	role := fs.StringP("role", "r", string(domain.RoleAssociate), "associate or manager")
	email := fs.String("email", "", "email claim")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	principal := domain.Principal{ID: uuid.New(), Email: *email}
	if *userID != "" {
		id, err := uuid.Parse(*userID)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		principal.ID = id
	}

	parsed, ok := domain.ParseRole(*role)
	if !ok {
		return fmt.Errorf("invalid --role %q", *role)
	}
	principal.Role = parsed

	token, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL).GenerateToken(principal)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
