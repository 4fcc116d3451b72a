// Command ticketing serves events, ticket purchases, gate scans and the
// ban registry.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
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
	"github.com/eventflow/platform/internal/ratelimit"
	"github.com/eventflow/platform/internal/server"
	"github.com/eventflow/platform/internal/storage/postgres"
	transporthttp "github.com/eventflow/platform/internal/transport/http"
)

const defaultPort = "3005"

func main() {
	logger := log.Default()

	cfg, err := config.Load("ticketing", defaultPort, os.Args[1:], logger)
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

	clk := clock.NewSystem()
	verifier := auth.NewKeycloakVerifier(auth.KeycloakConfig{
		BaseURL:   cfg.KeycloakURL,
		PublicURL: cfg.KeycloakPublicURL,
		Realm:     cfg.KeycloakRealm,
		ClientID:  cfg.KeycloakClientID,
		CacheTTL:  cfg.JWKSCacheTTL,
	})

	publisher := messaging.NewPublisher(cfg.RabbitMQURL,
		messaging.WithPublisherLogger(logger),
		messaging.WithPublisherQueue(cfg.TicketQueue),
	)
	defer publisher.Close()

	banSvc := app.NewBanService(postgres.NewBanRepository(pool), clk)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), clk,
		ratelimit.WithLimit(cfg.PurchaseRateLimit),
		ratelimit.WithWindow(cfg.PurchaseRateWindow),
	)
	ticketSvc := app.NewTicketService(postgres.NewTicketRepository(pool), publisher, clk,
		app.WithAdmissionGuards(app.BanGuard(banSvc), app.RateLimitGuard(limiter)),
		app.WithTicketLogger(logger),
		app.WithTicketMetrics(m),
	)
	eventSvc := app.NewEventService(postgres.NewEventRepository(pool), clk)

	mux := transporthttp.NewTicketingMux(transporthttp.TicketingRoutes{
		Verifier: verifier,
		Events:   eventSvc,
		Tickets:  ticketSvc,
		Bans:     banSvc,
		Metrics:  m,
		Gatherer: reg,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, ":"+cfg.Port, handler, logger); err != nil {
		log.Printf("server error: %v", err)
	}

	// Let sales committed before shutdown reach the broker.
	ticketSvc.Wait()
}
