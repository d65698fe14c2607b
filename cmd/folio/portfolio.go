package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/api"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/filter"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/render"
	"github.com/mtlprog/folio/internal/worker"
)

func (a *app) portfolioCommand() *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "view, upload and export holdings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "show the rollup for a date",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "portfolio date (YYYY-MM-DD), latest upload when empty"},
					&cli.StringFlag{Name: "mode", Usage: "sector, brokerage or stock", Value: string(aggregate.ModeSector)},
					&cli.StringFlag{Name: "sector", Usage: "comma-separated sector ids"},
					&cli.StringFlag{Name: "brokerage", Usage: "comma-separated brokerage ids"},
					&cli.StringFlag{Name: "code", Usage: "stock code substring"},
					&cli.StringFlag{Name: "sort", Usage: "name, brokerageCode, brokerage, qty, avgCost, totalCost or totalValue"},
					&cli.BoolFlag{Name: "desc", Usage: "sort descending"},
				},
				Action: a.portfolioShow,
			},
			{
				Name:   "dates",
				Usage:  "list dates with uploaded holdings",
				Action: a.portfolioDates,
			},
			{
				Name:      "upload",
				Usage:     "upload a holdings file (.csv, .xls, .xlsx)",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "brokerage", Usage: "brokerage id, the default brokerage when omitted"},
					&cli.StringFlag{Name: "date", Usage: "holdings date (YYYY-MM-DD), today when empty"},
				},
				Action: a.portfolioUpload,
			},
			{
				Name:  "delete-range",
				Usage: "delete one brokerage's holdings between two dates",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "brokerage", Usage: "brokerage id", Required: true},
					&cli.StringFlag{Name: "from", Usage: "first date (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "to", Usage: "last date (YYYY-MM-DD)", Required: true},
				},
				Action: a.portfolioDeleteRange,
			},
			{
				Name:  "export",
				Usage: "export every rollup mode to a spreadsheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "portfolio date (YYYY-MM-DD), latest upload when empty"},
					&cli.StringFlag{Name: "xlsx", Usage: "write an XLSX workbook to this path", Value: a.cfg.ExportPath},
					&cli.BoolFlag{Name: "sheets", Usage: "write to the configured Google Sheets document"},
				},
				Action: a.portfolioExport,
			},
			{
				Name:   "serve",
				Usage:  "serve rollups over HTTP and export on a schedule",
				Action: a.portfolioServe,
			},
		},
	}
}

func (a *app) portfolioShow(c *cli.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}
	report, err := svc.Rollup(c.Context, q)
	if err != nil {
		return err
	}
	if a.format == render.FormatJSON {
		return render.JSON(a.out, report)
	}
	return render.Rollup(a.out, report.Date, report.Rollup, a.money)
}

func parseQuery(c *cli.Context) (portfolio.Query, error) {
	var q portfolio.Query
	var err error

	if q.Date, err = parseOptionalDate(c.String("date")); err != nil {
		return q, err
	}
	if q.Mode, err = aggregate.ParseMode(c.String("mode")); err != nil {
		return q, err
	}
	if q.Filters.SectorIDs, err = filter.ParseIDs(c.String("sector")); err != nil {
		return q, fmt.Errorf("--sector: %w", err)
	}
	if q.Filters.BrokerageIDs, err = filter.ParseIDs(c.String("brokerage")); err != nil {
		return q, fmt.Errorf("--brokerage: %w", err)
	}
	q.Filters.Code = c.String("code")
	if s := c.String("sort"); s != "" {
		if q.Sort, err = aggregate.ParseSortField(s); err != nil {
			return q, err
		}
	}
	q.Desc = c.Bool("desc")
	return q, nil
}

func parseOptionalDate(s string) (domain.Date, error) {
	if strings.TrimSpace(s) == "" {
		return domain.Date{}, nil
	}
	return domain.ParseDate(s)
}

func (a *app) portfolioDates(c *cli.Context) error {
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}
	dates, err := svc.Dates(c.Context)
	if err != nil {
		return err
	}
	if a.format == render.FormatJSON {
		return render.JSON(a.out, map[string]any{"dates": dates})
	}
	return render.Dates(a.out, dates)
}

func (a *app) portfolioUpload(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one FILE argument")
	}
	date, err := parseOptionalDate(c.String("date"))
	if err != nil {
		return err
	}
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}

	path := c.Args().First()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	msg, err := svc.Upload(c.Context, portfolio.UploadRequest{
		Filename:    path,
		Content:     f,
		BrokerageID: c.Int("brokerage"),
		Date:        date,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) portfolioDeleteRange(c *cli.Context) error {
	from, err := domain.ParseDate(c.String("from"))
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := domain.ParseDate(c.String("to"))
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}

	msg, err := svc.DeleteRange(c.Context, portfolio.RangeRequest{
		BrokerageID: c.Int("brokerage"),
		From:        from,
		To:          to,
	}, a.confirm)
	if errors.Is(err, portfolio.ErrDeclined) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) portfolioExport(c *cli.Context) error {
	date, err := parseOptionalDate(c.String("date"))
	if err != nil {
		return err
	}
	svc, err := a.portfolioService(c.Context)
	if err != nil {
		return err
	}

	var writers []export.SheetWriter
	if path := c.String("xlsx"); path != "" {
		writers = append(writers, export.NewXLSXWriter(path))
	}
	if c.Bool("sheets") {
		if !a.cfg.SheetsEnabled() {
			return errors.New("--sheets requires GOOGLE_SHEETS_ID and GOOGLE_CREDENTIALS_JSON")
		}
		sw, err := export.NewSheetsWriter(c.Context, a.cfg.GoogleSheetsID, a.cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
		writers = append(writers, sw)
	}
	if len(writers) == 0 {
		return errors.New("nothing to export to: pass --xlsx PATH or --sheets")
	}

	for _, w := range writers {
		if err := export.NewService(svc, w).Export(c.Context, date); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, "Export complete.")
	return nil
}

// exportWriter picks the scheduled export destination: Google Sheets when
// configured, otherwise the XLSX path. It returns nil when neither is set.
func (a *app) exportWriter(c *cli.Context) (export.SheetWriter, error) {
	if a.cfg.SheetsEnabled() {
		return export.NewSheetsWriter(c.Context, a.cfg.GoogleSheetsID, a.cfg.GoogleCredentialsJSON)
	}
	if a.cfg.ExportPath != "" {
		return export.NewXLSXWriter(a.cfg.ExportPath), nil
	}
	return nil, nil
}

func (a *app) portfolioServe(c *cli.Context) error {
	ctx := c.Context
	svc, err := a.portfolioService(ctx)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	var quotes api.QuoteStore
	if a.quotes != nil {
		quotes = a.quotes
	}

	writer, err := a.exportWriter(c)
	if err != nil {
		log.Fatalf("Failed to create export writer: %v", err)
	}
	if writer != nil {
		reportWorker := worker.NewReportWorker(svc, export.NewService(svc, writer), a.cfg.ExportInterval)
		go reportWorker.Run(ctx)
	} else {
		slog.Info("no export destination configured, scheduled export disabled")
	}

	srv := api.NewServer(a.cfg.HTTPPort, svc, quotes, a.cfg.AdminAPIKey)
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Printf("HTTP server error: %v", err)
	}
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
