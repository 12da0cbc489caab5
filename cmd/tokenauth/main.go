package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-token-session/auth"
	"github.com/jrsteele09/go-token-session/internal/config"
	"github.com/jrsteele09/go-token-session/internal/logging"
	"github.com/jrsteele09/go-token-session/metrics"
	"github.com/jrsteele09/go-token-session/sessions"
	"github.com/jrsteele09/go-token-session/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const configPathEnvVar = "TOKENAUTH_CONFIG"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running token session")
	}
	log.Info().Msg("Token session stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(config.GetEnv(configPathEnvVar, "tokenauth.yaml"))
	if err != nil {
		return err
	}
	logging.New(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metricsServer *http.Server
	if addr := c.GetMetricsAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go listenAndServe(metricsServer)
	}

	authenticator := auth.New(c, transport.NewHTTPSender(),
		auth.WithMetrics(metrics.New(registry)),
		auth.WithSessionDataUpdated(func(p sessions.Properties) {
			log.Info().Int("properties", len(p)).Msg("Session data updated")
		}),
	)

	ctx := context.Background()
	props, err := authenticator.Authenticate(ctx, auth.Credentials{
		Identification: c.GetIdentification(),
		Password:       c.GetPassword(),
	})
	if err != nil {
		return fmt.Errorf("authenticate %s: %w", c.GetIdentification(), err)
	}
	log.Info().Bool("refresh_pending", authenticator.RefreshPending()).Int("properties", len(props)).Msg("Session started")

	waitForStopSignal()

	returnError = authenticator.Invalidate(ctx, authenticator.Session())
	if metricsServer != nil {
		returnError = errors.Join(returnError, shutdown(metricsServer))
	}
	return returnError
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Metrics listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Msg("Metrics listener stopped")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
