// Command notifications records ticket sales from the broker and lists
// them to organizers.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/auth"
	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/config"
	"github.com/eventflow/platform/internal/messaging"
	"github.com/eventflow/platform/internal/metrics"
	"github.com/eventflow/platform/internal/server"
	"github.com/eventflow/platform/internal/storage/postgres"
	transporthttp "github.com/eventflow/platform/internal/transport/http"
)

const defaultPort = "3006"

func main() {
	logger := log.Default()

	cfg, err := config.Load("notifications", defaultPort, os.Args[1:], logger)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := postgres.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	verifier := auth.NewKeycloakVerifier(auth.KeycloakConfig{
		BaseURL:   cfg.KeycloakURL,
		PublicURL: cfg.KeycloakPublicURL,
		Realm:     cfg.KeycloakRealm,
		ClientID:  cfg.KeycloakClientID,
		CacheTTL:  cfg.JWKSCacheTTL,
	})
	notificationSvc := app.NewNotificationService(postgres.NewNotificationRepository(pool), clock.NewSystem())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingester := messaging.NewIngester(cfg.RabbitMQURL, notificationSvc,
		messaging.WithIngesterLogger(logger),
		messaging.WithIngesterMetrics(m),
		messaging.WithIngesterQueue(cfg.TicketQueue),
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ingester.Run(ctx); err != nil {
			log.Printf("ingester stopped: %v", err)
		}
	}()

	mux := transporthttp.NewNotificationMux(transporthttp.NotificationRoutes{
		Verifier:      verifier,
		Notifications: notificationSvc,
		Metrics:       m,
		Gatherer:      reg,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	if err := server.Run(ctx, ":"+cfg.Port, handler, logger); err != nil {
		log.Printf("server error: %v", err)
	}
	stop()
	wg.Wait()
}
