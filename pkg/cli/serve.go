package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meetscribe/pkg/api"
	"meetscribe/pkg/config"
	"meetscribe/pkg/store"
)

func NewServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription streaming server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Server.Address, "addr", cfg.Server.Address, "listen address")
	cmd.Flags().StringVar(&cfg.Worker.Command, "worker-cmd", cfg.Worker.Command, "recognition worker command")
	cmd.Flags().StringVar(&cfg.StoragePath, "storage", cfg.StoragePath, "local storage directory")

	return cmd
}

func runServe(cfg *config.Config) error {
	st, err := store.Open(cfg.StoragePath, cfg.Store)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer st.Close()

	handlers := api.NewHandlers(cfg, st)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server starting on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
