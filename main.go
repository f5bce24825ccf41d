package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MarcGrol/marketplace/lib/myconfig"
	"github.com/MarcGrol/marketplace/lib/myevents"
	"github.com/MarcGrol/marketplace/lib/myhttpclient"
	"github.com/MarcGrol/marketplace/lib/mylog"
	"github.com/MarcGrol/marketplace/lib/mypostgres"
	"github.com/MarcGrol/marketplace/lib/mypublisher"
	"github.com/MarcGrol/marketplace/lib/mypubsub"
	"github.com/MarcGrol/marketplace/lib/myqueue"
	"github.com/MarcGrol/marketplace/lib/mystore"
	"github.com/MarcGrol/marketplace/lib/mytime"
	"github.com/MarcGrol/marketplace/lib/myuuid"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
	"github.com/MarcGrol/marketplace/services/checkoutstripe"
	"github.com/MarcGrol/marketplace/services/fulfillment"
	"github.com/MarcGrol/marketplace/services/inventory"
	"github.com/MarcGrol/marketplace/services/notifier"
	"github.com/MarcGrol/marketplace/services/warmup"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "marketplace",
		Short:        "Marketplace checkout and order fulfillment backend",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "optional yaml config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the checkout, webhook and order endpoints",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres migrations and exit",
		RunE:  runMigrate,
	})

	err := rootCmd.Execute()
	mylog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (myconfig.Config, error) {
	cfg, err := myconfig.Load(configPath)
	if err != nil {
		return cfg, err
	}
	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	logger := mylog.New("main")

	cfg, err := myconfig.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required to migrate")
	}

	db, cleanup, err := mypostgres.Open(c, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer cleanup()

	err = mypostgres.Migrate(db)
	if err != nil {
		return err
	}

	logger.Log(c, "", mylog.SeverityInfo, "Database is up to date")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	c, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := mylog.New("main")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanups := []func(){}
	defer func() {
		for idx := len(cleanups) - 1; idx >= 0; idx-- {
			cleanups[idx]()
		}
	}()

	var db *sql.DB
	if cfg.StoreBackend == string(mystore.BackendPostgres) || cfg.EffectiveStockBackend() == string(mystore.BackendPostgres) {
		var cleanup func()
		db, cleanup, err = mypostgres.Open(c, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, cleanup)

		err = mypostgres.Migrate(db)
		if err != nil {
			return err
		}
	}

	storeCfg := mystore.Config{
		Backend:   mystore.Backend(cfg.StoreBackend),
		ProjectID: cfg.ProjectID,
		DB:        db,
	}

	orderStore, cleanup, err := newOrderStore(c, storeCfg, db)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	stockKeeper, cleanup, err := newStockKeeper(c, cfg, storeCfg, db)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	if cfg.SeedDemoProducts {
		count, err := inventory.Seed(c, stockKeeper)
		if err != nil {
			return err
		}
		logger.Log(c, "", mylog.SeverityInfo, "Seeded %d demo products", count)
	}

	outbox, cleanup, err := mystore.New[myevents.EventEnvelope](c, storeCfg)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	pubsub, cleanup, err := mypubsub.New(c, mypubsub.Config{
		Backend:      mypubsub.Backend(cfg.EffectivePubSubBackend()),
		ProjectID:    cfg.ProjectID,
		KafkaBrokers: cfg.KafkaBrokers,
	})
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	queue, cleanup, err := myqueue.New(c, myqueue.Config{
		Backend:    myqueue.Backend(cfg.EffectiveQueueBackend()),
		ProjectID:  cfg.ProjectID,
		LocationID: cfg.LocationID,
		QueueName:  cfg.QueueName,
	})
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	nower := mytime.RealNower{}
	router := mux.NewRouter()

	publisher := mypublisher.New(c, outbox, pubsub, queue, nower)
	publisher.RegisterEndpoints(c, router)
	publisher.StartPolling(c, cfg.OutboxPollInterval)

	dispatcher := notifier.NewDispatcher(newSender(cfg), cfg.NotificationTimeout, mylog.New("notifier"))

	engine := fulfillment.NewService(nower, myuuid.RealUUIDer{}, orderStore, stockKeeper, publisher, dispatcher, cfg.AmountToleranceCents)
	err = engine.CreateTopics(c)
	if err != nil {
		return fmt.Errorf("error creating topics: %w", err)
	}

	err = fulfillment.NewWebService(engine, cfg.AdminUsername, cfg.AdminPassword).RegisterEndpoints(c, router)
	if err != nil {
		return err
	}

	err = checkoutstripe.NewWebService(checkoutstripe.Config{
		FrontendURL:        cfg.FrontendURL,
		Currency:           cfg.CheckoutCurrency,
		PaymentMethodTypes: cfg.StripePaymentMethodTypes,
	}, checkoutstripe.NewPayer(cfg.StripeSecretKey, myhttpclient.New(30*time.Second, mylog.New("stripe"))), checkoutapi.NewCartCodec(cfg.EffectiveCartMetadataSecret()),
		cfg.StripeWebhookSecret, cfg.WebhookTolerance, nower, engine).RegisterEndpoints(c, router)
	if err != nil {
		return err
	}

	warmup.NewService(map[string]warmup.Check{
		"orders": func(c context.Context) error {
			_, _, err := orderStore.GetBySessionID(c, "warmup")
			return err
		},
		"stock": func(c context.Context) error {
			_, _, err := stockKeeper.GetProduct(c, "warmup")
			return err
		},
	}).RegisterEndpoints(c, router)

	err = startWebServerBlocking(c, cfg.Port, router, logger)

	// receipts in flight are bounded by the notification timeout
	dispatcher.Wait()

	return err
}

func newOrderStore(c context.Context, storeCfg mystore.Config, db *sql.DB) (fulfillment.OrderStore, func(), error) {
	if storeCfg.Backend == mystore.BackendPostgres {
		return fulfillment.NewPostgresOrderStore(db), func() {}, nil
	}

	store, cleanup, err := mystore.New[fulfillment.Order](c, storeCfg)
	if err != nil {
		return nil, cleanup, err
	}
	return fulfillment.NewDocumentOrderStore(store), cleanup, nil
}

func newStockKeeper(c context.Context, cfg myconfig.Config, storeCfg mystore.Config, db *sql.DB) (inventory.StockKeeper, func(), error) {
	switch cfg.EffectiveStockBackend() {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		err := client.Ping(c).Err()
		if err != nil {
			client.Close()
			return nil, func() {}, fmt.Errorf("error connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return inventory.NewRedisStockKeeper(client), func() { client.Close() }, nil
	case string(mystore.BackendPostgres):
		return inventory.NewPostgresStockKeeper(db), func() {}, nil
	default:
		store, cleanup, err := mystore.New[inventory.Product](c, storeCfg)
		if err != nil {
			return nil, cleanup, err
		}
		return inventory.NewDocumentStockKeeper(store), cleanup, nil
	}
}

func newSender(cfg myconfig.Config) notifier.Sender {
	if cfg.SMTPHost == "" {
		return notifier.NewLogSender()
	}
	return notifier.NewSMTPSender(notifier.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func startWebServerBlocking(c context.Context, port string, router *mux.Router, logger mylog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Log(c, "", mylog.SeverityInfo, "Starting webserver on port %s (try http://localhost:%s/api/health)", port, port)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("error starting webserver on port %s: %w", port, err)
	case <-c.Done():
	}

	logger.Log(c, "", mylog.SeverityInfo, "Shutting down webserver")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("error shutting down webserver: %w", err)
	}
	return nil
}
