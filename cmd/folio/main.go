package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/reconcile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	a := newApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	defer a.close()

	if err := a.cli().RunContext(ctx, os.Args); err != nil {
		// Notices already told the user what went wrong.
		if !reconcile.Notified(err) {
			log.Printf("Error: %v", err)
		}
		a.close()
		stop()
		os.Exit(1)
	}
}
