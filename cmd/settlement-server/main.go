package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-settlement/internal/config"
	"tournament-settlement/internal/logging"
	"tournament-settlement/internal/settlement"
	"tournament-settlement/internal/store"
	httptransport "tournament-settlement/internal/transport/http"
	"tournament-settlement/internal/x402"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	payments, err := x402.SettingsFromConfig(cfg.X402)
	if err != nil {
		log.Fatal().Err(err).Msg("x402 config invalid")
	}
	settleCfg, err := settlement.SettingsFromConfig(cfg.Tournament)
	if err != nil {
		log.Fatal().Err(err).Msg("tournament config invalid")
	}

	svc := settlement.NewService(st, settleCfg)
	settlement.NewSweeper(svc, st).Start(ctx, cfg.Tournament.SweepInterval)

	r := httptransport.NewRouter(httptransport.Deps{
		Store:       st,
		Settler:     svc,
		Recorder:    x402.NewRecorder(st, payments),
		Verifier:    x402.NewVerifier(payments, x402.Secp256k1{}),
		Payments:    payments,
		AdminAPIKey: cfg.Server.AdminAPIKey,
		MetricsPath: cfg.Server.MetricsPath,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.Server.HTTPAddr).
		Bool("x402_enabled", payments.Enabled).
		Str("network", payments.Network).
		Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}
