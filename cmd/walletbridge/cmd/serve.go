package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/kestrelwallet/walletbridge/aleo"
	"github.com/kestrelwallet/walletbridge/api"
	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/backend"
	"github.com/kestrelwallet/walletbridge/relay"
	appsignal "github.com/kestrelwallet/walletbridge/signal"
	"github.com/kestrelwallet/walletbridge/store"
	"github.com/kestrelwallet/walletbridge/walletconnect"
)

var (
	listenAddr string
	dataDir    string
	relayURL   string
	projectID  string
	engineURL  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		sessions, err := store.NewBoltFromFile(dataDir+"/bridge.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open bridge storage: %w", err)
		}
		defer sessions.Close()

		hub := appsignal.NewHub()
		surface := api.NewSignalSurface(hub)
		broker := approval.NewBroker(surface, approval.WithLogger(log))
		invoker := backend.NewHTTPInvoker(engineURL, backend.WithLogger(log))

		grants := walletconnect.NewGrantCache(store.NewMemory())
		metadata := walletconnect.NewMetadataCache(store.NewMemory())
		router := aleo.NewRouter(invoker, broker, grants, metadata, aleo.WithLogger(log))

		bridgeURL := relayURL
		if projectID != "" {
			bridgeURL += "?projectId=" + url.QueryEscape(projectID)
		}
		client := relay.NewClient(bridgeURL, relay.WithLogger(log))
		defer client.Close()

		manager := walletconnect.NewManager(walletconnect.ManagerConfig{
			Client:   client,
			Handler:  router,
			Broker:   broker,
			Backend:  invoker,
			Hub:      hub,
			Sessions: sessions,
			Metadata: metadata,
		}, walletconnect.WithLogger(log))

		go func() {
			for err := range client.Errors() {
				log.Warn("relay connection lost", "error", err)
				hub.Publish(appsignal.EventDisconnected, nil)
			}
		}()

		a := api.New(manager, broker, hub, api.WithLogger(log))

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              listenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Listening on %s (data: %s, relay: %s)...\n", listenAddr, dataDir, relayURL)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager.Close(ctx)
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "127.0.0.1:17144", "Control API listen address")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serveCmd.Flags().StringVar(&relayURL, "relay-url", "wss://relay.walletconnect.com", "Relay bridge websocket URL")
	serveCmd.Flags().StringVar(&projectID, "project-id", "", "Relay project id appended to the bridge URL")
	serveCmd.Flags().StringVar(&engineURL, "engine-url", "http://127.0.0.1:17145", "Wallet engine base URL")
}
