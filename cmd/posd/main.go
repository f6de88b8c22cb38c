package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/EndoRodrigo/eCommerce/internal/api"
	"github.com/EndoRodrigo/eCommerce/internal/checkout"
	"github.com/EndoRodrigo/eCommerce/internal/config"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
	"github.com/EndoRodrigo/eCommerce/internal/invoice"
	"github.com/EndoRodrigo/eCommerce/internal/notify"
	"github.com/EndoRodrigo/eCommerce/internal/order"
	"github.com/EndoRodrigo/eCommerce/internal/payment"
	"github.com/EndoRodrigo/eCommerce/internal/session"
)

func main() {
	log.Println("posd starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var wg sync.WaitGroup

	// Order repository: Postgres when configured, memory otherwise
	var repo order.Repository
	if cfg.DBHost != "" {
		creds := &order.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsDirPath,
		}
		pg, err := order.NewPostgresRepository(creds)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()
		if err := pg.RunMigrations(creds); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")
		repo = pg
	} else {
		log.Println("No database configured, orders held in memory")
		repo = order.NewMemoryRepository()
	}

	// Payment idempotency store: Redis when configured
	var idemStore payment.IdempotencyStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		idemStore = payment.NewRedisStore(client, cfg.IdempotencyTTL)
	} else {
		idemStore = payment.NewMemoryStore()
	}

	// Notification sink: Kafka when brokers are configured
	var sink notify.Sink = notify.NoopSink{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	// Session registry, with Mongo archiving of purged carts when configured
	registryOpts := []session.Option{
		session.WithTTL(cfg.SessionTTL),
		session.WithSweepInterval(cfg.SweepInterval),
	}
	if cfg.MongoURI != "" {
		mongoCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to mongo: %v", err)
		}
		defer client.Disconnect(context.Background())
		archive := session.NewMongoArchive(client, cfg.MongoDatabase, cfg.MongoCollection)
		registryOpts = append(registryOpts, session.WithArchiver(archive))
	}
	registry := session.NewRegistry(registryOpts...)
	defer registry.Close()

	catalog := inventory.NewMemoryCatalog()
	guard := inventory.NewGuard(catalog, sink)
	lifecycle := order.NewLifecycle(repo, guard)
	processor := payment.NewProcessor(
		payment.NewSimulatedGateway(payment.AlwaysApprove),
		idemStore,
		cfg.PaymentTimeout,
	)

	// Invoice relay: disabled without a billing API URL
	var relay invoice.Relay = invoice.NoopRelay{}
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	if cfg.InvoiceBaseURL != "" {
		relay = invoice.NewHTTPRelay(cfg.InvoiceBaseURL, cfg.InvoiceToken, 30*time.Second)
		poller := invoice.NewRetryPoller(repo, relay, cfg.InvoiceRetryTick)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
	}

	threshold, err := decimal.NewFromString(cfg.HighValueThreshold)
	if err != nil {
		log.Fatalf("Invalid POS_HIGH_VALUE_THRESHOLD: %v", err)
	}

	directory := checkout.NewMemoryDirectory()
	service := checkout.NewService(checkout.Deps{
		Registry:  registry,
		Catalog:   catalog,
		Guard:     guard,
		Processor: processor,
		Lifecycle: lifecycle,
		Repo:      repo,
		Customers: directory,
		Relay:     relay,
		Sink:      sink,
	},
		checkout.WithHighValueThreshold(threshold),
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(service, repo, lifecycle, catalog, directory),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down posd...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	pollerCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Background workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Shutdown timed out, exiting anyway")
	}
}
