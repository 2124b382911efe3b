package main

import (
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesbot/server"
)

var (
	name        string
	port        uint16
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:          "server",
		Short:        "Host a minesweeper game for bots and players",
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	rootCmd.Flags().StringVar(&name, "name", "Server", "server name")
	rootCmd.Flags().Uint16Var(&port, "port", 42069, "port to listen on")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.Spawn(ctx, server.Config{Name: name, Port: port, Logger: logger})
	if err != nil {
		return err
	}
	defer srv.Close()
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer metrics.Close()
	}
	logger.Info("started", "name", srv.Name, "port", srv.Port())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
