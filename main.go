package main

// GET    /inventory                  - List all products
// POST   /inventory                  - Add a product (pid supplied by the caller)
// GET    /inventory/{pid}            - Get a product
// PUT    /inventory/{pid}            - Replace a product's attributes
// DELETE /inventory/{pid}            - Remove a product
// PUT    /inventory/{pid}/{amount}   - Add amount to stock
// DELETE /inventory/{pid}/{amount}   - Take amount from stock, never below zero
// POST   /cart                       - Create a cart for a uid or sid
// GET    /cart/{id}, DELETE /cart/{id}
// POST   /cart/{id}, PUT /cart/{id}  - Add a product / change its amount
// PUT    /cart/{id}/remove|empty     - Remove a product / all products
// PUT    /cart/{id}/lock|unlock, GET /cart/{id}/locked
// POST|DELETE|PUT /checkout/{id}     - Begin / abandon / complete checkout

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/config"
	"storefront/handler"
	"storefront/metrics"
	"storefront/migrations"
	"storefront/service"
	"storefront/store"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	// Prices go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:  config.ServiceName,
		Usage: "inventory and cart service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateAction(migrations.Up)},
					{Name: "down", Usage: "revert all migrations", Action: migrateAction(migrations.Down)},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront failed")
	}
}

func migrateAction(run func(db *sql.DB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := cfg.Logger()
		if err != nil {
			return err
		}
		db, err := store.Open(c.Context, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := run(db.DB); err != nil {
			return err
		}
		logger.WithFields(log.Fields{"service": config.ServiceName, "command": c.Command.Name}).
			Info("database migrations executed successfully")
		return nil
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	entry := logger.WithField("service", config.ServiceName)

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	db, err := store.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	cancel()
	if err != nil {
		return err
	}
	st := store.NewPostgresStore(db, entry)
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg)
	domain := metrics.NewDomain(reg)

	inv := service.NewInventoryService(st, service.WithLogger(entry), service.WithObserver(domain))
	carts := service.NewCartService(st, service.WithLogger(entry), service.WithObserver(domain))
	h := handler.NewHandler(inv, carts, entry, cfg.RequestTimeout)

	r := mux.NewRouter()
	r.Use(serverMetrics.Middleware)
	r.Handle("/metrics", metrics.Handler(reg)).Methods(http.MethodGet)
	r.HandleFunc("/health", health(st)).Methods(http.MethodGet)
	h.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		entry.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Fatal("server error")
		}
	}()

	waitForKillSignal(entry)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func health(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func waitForKillSignal(l log.FieldLogger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	switch <-ch {
	case os.Interrupt:
		l.Info("got SIGINT...")
	case syscall.SIGTERM:
		l.Info("got SIGTERM...")
	}
}
