package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/database"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/price"
	"github.com/mtlprog/folio/internal/reconcile"
	"github.com/mtlprog/folio/internal/remote"
	"github.com/mtlprog/folio/internal/render"
	"github.com/mtlprog/folio/internal/resolver"
	"github.com/mtlprog/folio/internal/session"
)

// app holds the per-invocation wiring shared by all commands.
type app struct {
	cfg    config.Config
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	identity  session.Identity
	client    *remote.Client
	portfolio *portfolio.Service
	quotes    *price.RepositorySource
	quoteRepo *price.PgQuoteRepository
	pool      *pgxpool.Pool
	format    render.Format
	money     render.Money
	assumeYes bool

	closeOnce sync.Once
}

func newApp(cfg config.Config, in io.Reader, out, errOut io.Writer) *app {
	return &app{cfg: cfg, in: bufio.NewReader(in), out: out, errOut: errOut}
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:      "folio",
		Usage:     "consolidate brokerage holdings into one portfolio",
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "collaborator API base URL", Value: a.cfg.APIURL},
			&cli.StringFlag{Name: "token", Usage: "bearer token for the API", Value: a.cfg.APIToken},
			&cli.StringFlag{Name: "user", Usage: "user id shown in the profile", Value: a.cfg.User},
			&cli.StringFlag{Name: "currency", Usage: "ISO currency for amounts", Value: a.cfg.Currency},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "table or json", Value: string(render.FormatTable)},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "answer yes to confirmations"},
		},
		Before:         a.setup,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			a.portfolioCommand(),
			a.sectorsCommand(),
			a.mastersCommand(),
			a.mappingsCommand(),
			a.brokeragesCommand(),
			a.profileCommand(),
			a.pricesCommand(),
		},
	}
}

func (a *app) setup(c *cli.Context) error {
	format, err := render.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	a.format = format
	a.money = render.NewMoney(c.String("currency"))
	a.assumeYes = c.Bool("yes")

	a.cfg.APIURL = strings.TrimRight(strings.TrimSpace(c.String("api-url")), "/")
	a.identity = session.NewStatic(c.String("user"), c.String("token"))
	a.client = remote.NewClient(a.cfg.APIURL, a.identity,
		remote.WithTimeout(a.cfg.HTTPTimeout),
		remote.WithRetry(a.cfg.RetryMax, a.cfg.RetryBaseDelay),
		remote.WithRateLimit(a.cfg.RateLimit),
	)
	return nil
}

// requireAPI rejects commands that would call the API without a base URL or token.
func (a *app) requireAPI() error {
	if a.cfg.APIURL == "" {
		return errors.New("API URL is required: set FOLIO_API_URL or pass --api-url")
	}
	return a.identity.Validate()
}

// prices returns the price source: the quote table when a database is configured,
// an empty table otherwise.
func (a *app) prices(ctx context.Context) (price.Source, error) {
	if a.cfg.DatabaseURL == "" {
		return price.NewStatic(nil), nil
	}
	if err := a.openQuotes(ctx); err != nil {
		return nil, err
	}
	return a.quotes, nil
}

func (a *app) openQuotes(ctx context.Context) error {
	if a.quotes != nil {
		return nil
	}
	if a.cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for quotes")
	}

	pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return fmt.Errorf("opening migrations: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return fmt.Errorf("running migrations: %w", err)
	}

	a.pool = pool
	a.quoteRepo = price.NewPgQuoteRepository(pool)
	a.quotes = price.NewRepositorySource(a.quoteRepo)
	return nil
}

func (a *app) portfolioService(ctx context.Context) (*portfolio.Service, error) {
	if a.portfolio != nil {
		return a.portfolio, nil
	}
	if err := a.requireAPI(); err != nil {
		return nil, err
	}
	src, err := a.prices(ctx)
	if err != nil {
		return nil, err
	}
	a.portfolio = portfolio.NewService(a.client, src)
	return a.portfolio, nil
}

// catalog loads stock masters and sectors for the reconciliation editors.
func (a *app) catalog(ctx context.Context) (*resolver.Catalog, error) {
	if err := a.requireAPI(); err != nil {
		return nil, err
	}
	masters, err := a.client.StockMasters(ctx)
	if err != nil {
		return nil, err
	}
	sectors, err := a.client.Sectors(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.NewCatalog(a.client, masters, sectors), nil
}

// notifier prints workflow notices: successes to out, errors to errOut.
func (a *app) notifier() reconcile.Notifier {
	return reconcile.NotifierFunc(func(n reconcile.Notice) {
		if n.Level == reconcile.LevelError {
			fmt.Fprintln(a.errOut, n.Message)
			return
		}
		fmt.Fprintln(a.out, n.Message)
	})
}

// confirm asks on the terminal unless --yes was given.
func (a *app) confirm(prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.pool != nil {
			a.pool.Close()
			slog.Debug("Database: pool closed")
		}
	})
}
