package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/api"
	"github.com/rustyeddy/tradelog/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the journal and assistant over HTTP",
	Long: `Start the HTTP/JSON API.

Every /api route except /api/greeting needs an X-User-ID header naming
the caller.

Example:
  tradelog serve -c tradelog.yaml --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	t, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	srv := api.New(t, newAssistant(store), cfg.Server).HTTPServer(cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", srv.Addr, "db", cfg.Store.DBPath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
