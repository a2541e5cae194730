// Command reconcile replays board reconciliation outside the API: for the
// tickets named on the command line, or for every ticket with an
// outstanding reconciliation flag. It opens the same store as the server and
// records its board moves to the configured audit sink. Notifications are
// not sent.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jsamuelsen11/trackflow/internal/adapters/audit"
	"github.com/jsamuelsen11/trackflow/internal/adapters/clients/acl"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/sqlstore"
	"github.com/jsamuelsen11/trackflow/internal/app"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
	"github.com/jsamuelsen11/trackflow/internal/platform/httpclient"
	"github.com/jsamuelsen11/trackflow/internal/platform/logging"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	profile   string
	configDir string
	tickets   []string
	flagged   bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	o := options{profile: os.Getenv("APP_PROFILE")}

	fs := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.profile, "profile", "p", o.profile, "config profile (defaults to $APP_PROFILE)")
	fs.StringVar(&o.configDir, "config-dir", "configs", "directory holding base.yaml and the profile files")
	fs.StringSliceVarP(&o.tickets, "ticket", "t", nil, "ticket ID to reconcile (repeatable, comma separated)")
	fs.BoolVar(&o.flagged, "flagged", false, "reconcile every ticket with an outstanding flag")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: reconcile [--profile NAME] (--ticket ID ... | --flagged)")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.tickets = append(o.tickets, fs.Args()...)

	switch {
	case o.profile == "":
		return options{}, errors.New("a profile is required: pass --profile or set APP_PROFILE")
	case len(o.tickets) == 0 && !o.flagged:
		return options{}, errors.New("nothing to do: pass --ticket or --flagged")
	case len(o.tickets) > 0 && o.flagged:
		return options{}, errors.New("--ticket and --flagged are mutually exclusive")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.profile, config.WithConfigDir(o.configDir))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("store close error", slog.Any("error", cerr))
		}
	}()

	reconciler := app.New(app.Deps{
		Store:    store,
		Audit:    auditSink(cfg, logger),
		Logger:   logger,
		Workflow: cfg.Workflow,
	}).Reconciler

	var reports []ports.ReconcileReport
	if o.flagged {
		reports, err = reconciler.ReconcileFlagged(ctx)
	} else {
		reports, err = reconcileTickets(ctx, reconciler, o.tickets)
	}
	for i := range reports {
		printReport(stdout, &reports[i])
	}
	return err
}

func reconcileTickets(ctx context.Context, r *app.Reconciler, ids []string) ([]ports.ReconcileReport, error) {
	var (
		reports []ports.ReconcileReport
		errs    []error
	)
	for _, id := range ids {
		report, err := r.ReconcileTicket(ctx, strings.TrimSpace(id))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, *report)
	}
	return reports, errors.Join(errs...)
}

func printReport(w io.Writer, r *ports.ReconcileReport) {
	fmt.Fprintf(w, "%s\tstatus=%s\tmoved=%d\tunchanged=%d\tflagged=%d\n",
		r.TicketID, r.Status, len(r.Moved), len(r.Unchanged), len(r.Flagged))
	for _, f := range r.Flagged {
		fmt.Fprintf(w, "  board %s: %s\n", f.BoardID, f.Reason)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.Store, error) {
	if cfg.Driver == config.DriverMemory {
		return memory.New(), nil
	}
	store, err := sqlstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

func auditSink(cfg *config.Config, logger *slog.Logger) ports.AuditSink {
	if cfg.Audit.Sink == config.AuditSinkHTTP {
		client := httpclient.New(&cfg.Client, cfg.Audit.BaseURL, "audit-service", nil, logger)
		return acl.NewAuditSink(client, cfg.Audit.Path, logger)
	}
	return audit.NewLogSink(logger)
}
