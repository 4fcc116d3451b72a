// Command profiles serves user profiles and role assignments.
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
	"github.com/eventflow/platform/internal/idp"
	"github.com/eventflow/platform/internal/metrics"
	"github.com/eventflow/platform/internal/server"
	"github.com/eventflow/platform/internal/storage/postgres"
	transporthttp "github.com/eventflow/platform/internal/transport/http"
)

const defaultPort = "3004"

func main() {
	logger := log.Default()

	cfg, err := config.Load("profiles", defaultPort, os.Args[1:], logger)
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
	directory := idp.NewClient(cfg.KeycloakURL, cfg.KeycloakRealm, cfg.KeycloakAdmin, cfg.KeycloakAdminPassword, nil)
	profileSvc := app.NewProfileService(postgres.NewProfileRepository(pool), directory, clock.NewSystem(), logger)

	mux := transporthttp.NewProfileMux(transporthttp.ProfileRoutes{
		Verifier: verifier,
		Profiles: profileSvc,
		Metrics:  m,
		Gatherer: reg,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, ":"+cfg.Port, handler, logger); err != nil {
		log.Printf("server error: %v", err)
	}
}
