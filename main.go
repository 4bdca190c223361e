package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/checkout"
	"storefront/clients"
	"storefront/config"
	"storefront/handlers"
	"storefront/logging"
	"storefront/mockbackend"
	"storefront/rabbitmq"
	"storefront/state"
	"storefront/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var (
	// Global flags
	configPath string

	// Mock backend flags
	failureRate float32
	seedCount   int
	workers     int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront client: product browsing, cart, checkout and order tracking",
	Long: `storefront serves the storefront views over HTTP on top of a shared
application state (session, cart, product cache) kept in sync with a
remote REST backend.

Run "storefront mock-backend" to start an in-memory backend for local use.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		gin.SetMode(logging.GinMode(cfg.LogLevel))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront views",
	RunE:  runServe,
}

var mockBackendCmd = &cobra.Command{
	Use:   "mock-backend",
	Short: "Run the in-memory development backend",
	RunE:  runMockBackend,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	mockBackendCmd.Flags().Float32Var(&failureRate, "failure-rate", 0, "fraction of requests answered with 503")
	mockBackendCmd.Flags().IntVar(&seedCount, "products", 24, "number of seeded products")
	mockBackendCmd.Flags().IntVar(&workers, "workers", 2, "order event consumers when a broker is configured")

	rootCmd.AddCommand(serveCmd, mockBackendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting storefront", zap.String("port", cfg.Port), zap.String("backend", cfg.BackendURL))

	db, err := storage.OpenSQLite(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := clients.NewBackendClient(cfg.BackendURL, cfg.RequestTimeout)
	store := state.New(state.Options{
		Backend:            client,
		Storage:            db,
		Logger:             logger.Named("state"),
		ReconcileOnFailure: cfg.ReconcileOnFailure,
	})
	defer store.Close()

	unsubscribe := store.Subscribe(func(snap state.Snapshot) {
		logger.Debug("State changed",
			zap.Uint64("version", snap.Version),
			zap.Bool("authenticated", snap.Authenticated),
			zap.Int("cart_count", snap.Cart.Count()))
	})
	defer unsubscribe()

	if err := store.Restore(ctx); err != nil {
		logger.Error("Failed to restore session", zap.Error(err))
	}
	if err := store.LoadProducts(ctx); err != nil {
		logger.Warn("Starting without products", zap.Error(err))
	}

	flowOpts := []checkout.Option{
		checkout.WithDeliveryFee(cfg.DeliveryFee),
		checkout.WithLogger(logger.Named("checkout")),
	}
	if cfg.PublishOrders() {
		pool, err := rabbitmq.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.ChannelPoolSize, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		flowOpts = append(flowOpts, checkout.WithPublisher(rabbitmq.NewPublisher(pool, cfg.RabbitMQQueue, logger)))
	}
	flow := checkout.NewFlow(store, client, flowOpts...)

	router := handlers.NewRouter(handlers.Options{
		Store:    store,
		Backend:  client,
		Checkout: flow,
		Currency: cfg.Currency,
		Logger:   logger.Named("http"),
	})

	err = listen(ctx, &http.Server{Addr: ":" + cfg.Port, Handler: router})
	flush(store)
	return err
}

func runMockBackend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := mockbackend.NewBackend(mockbackend.SeedProducts(seedCount), mockbackend.SeedUsers(), logger.Named("backend"))
	backend.SetFailureRate(failureRate)
	logger.Info("Starting mock backend",
		zap.String("port", cfg.MockBackendPort),
		zap.Int("products", seedCount),
		zap.Float32("failure_rate", failureRate))

	if cfg.PublishOrders() {
		fulfillment := mockbackend.NewFulfillment(backend, logger.Named("fulfillment"))
		group, err := rabbitmq.StartConsumers(ctx, cfg.RabbitMQURL, cfg.RabbitMQQueue, workers, fulfillment.HandleOrder, logger)
		if err != nil {
			return err
		}
		defer func() {
			group.Close()
			logger.Info("Fulfillment summary", zap.Int64("total_orders", fulfillment.TotalOrders()))
		}()
	}

	return listen(ctx, &http.Server{Addr: ":" + cfg.MockBackendPort, Handler: mockbackend.NewRouter(backend)})
}

// listen serves srv until ctx ends, then shuts it down gracefully.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.String("addr", srv.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// flush gives queued cart mirrors a bounded chance to reach the backend.
func flush(store *state.Store) {
	done := make(chan struct{})
	go func() {
		store.Flush()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("Dropping unsent cart updates")
	}
}
