package main

import (
	"time"

	"github.com/potdraw/potdraw/cmd/potdraw/shared"
	"github.com/potdraw/potdraw/internal/store"
)

// SweepCmd deletes settlement records whose retention horizon has passed.
// The server runs the same sweep in-process; this is the one-shot form for
// operators and cron.
type SweepCmd struct {
	Debug bool   `kong:"help='Enable debug logging'"`
	DBURL string `kong:"name='db-url',env='POTDRAW_DB_URL',required='',help='Postgres DSN for the settlement record store'"`
}

func (c *SweepCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)
	ctx := shared.SetupSignalHandler()

	pg, err := store.Connect(ctx, c.DBURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	deleted, err := pg.DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}

	logger.Info("Swept expired settlement records", "deleted", deleted)
	return nil
}
