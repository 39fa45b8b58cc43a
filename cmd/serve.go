package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/httpapi"
	"github.com/fleetflow/leadflow/internal/market"
	"github.com/fleetflow/leadflow/internal/pipeline"
)

var (
	servePort   int
	serveInputs []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for lead generation and quoting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sources, err := loadSources(serveInputs)
		if err != nil {
			return err
		}
		p := pipeline.New(sources, *cfg, st, initEnricher())

		tables, err := loadTables()
		if err != nil {
			return err
		}
		feed, err := loadFeed(time.Now())
		if err != nil {
			return err
		}

		// Background refresh keeps quote snapshots current for the seeded
		// lanes; readers never block on it.
		refresher := market.NewRefresher(feed, cfg.Market)
		for _, lane := range feed.Lanes() {
			refresher.Track(ctx, lane)
		}
		go refresher.Run(ctx)
		defer refresher.Stop()

		quoter := initQuoter(tables, refresher)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port()),
			Handler: httpapi.NewServer(p, quoter).Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func port() int {
	if servePort != 0 {
		return servePort
	}
	return cfg.Server.Port
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringSliceVar(&serveInputs, "input", nil, "JSON source file (repeatable)")
	rootCmd.AddCommand(serveCmd)
}
