package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"sopline.io/internal/auth"
	"sopline.io/internal/config"
	"sopline.io/internal/flow"
	"sopline.io/internal/httpapi"
	"sopline.io/internal/library"
	"sopline.io/internal/obs"
	"sopline.io/internal/ratelimit"
	"sopline.io/internal/share"
	"sopline.io/internal/store/memory"
	"sopline.io/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// stores is what every service needs from a backend.
type stores interface {
	auth.Store
	library.Store
	share.Store
	flow.Store
}

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, toml or json)")
	flag.Parse()

	logger := obs.Logger()
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	logger = obs.Logger()

	obs.Init()
	obs.InitBuildInfo(obs.BuildInfo{Version: version, Commit: commit, Store: cfg.Store})

	var (
		backend stores
		probe   httpapi.ReadyProbe
		closeDB = func() error { return nil }
	)
	switch cfg.Store {
	case config.StoreMemory:
		backend = memory.New(nil)
		logger.Warn().Msg("using the in-memory store; data is lost on restart")
	default:
		db, err := pg.Open(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("open db")
		}
		backend, probe, closeDB = db, httpapi.ReadyProbe{Store: db}, db.Close
	}

	authSvc, err := auth.NewService(backend, cfg.AuthSecret,
		auth.WithSessionTTL(cfg.SessionTTL),
		auth.WithResetTTL(cfg.ResetTTL),
		auth.WithAppURL(cfg.AppURL),
		auth.WithNotifier(auth.LogNotifier{}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth service")
	}
	libSvc, err := library.NewService(backend)
	if err != nil {
		logger.Fatal().Err(err).Msg("library service")
	}
	shareSvc, err := share.NewService(backend, backend, authSvc.Signer(), share.WithGrantTTL(cfg.ShareGrantTTL))
	if err != nil {
		logger.Fatal().Err(err).Msg("share service")
	}
	flowSvc, err := flow.NewService(backend, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("flow service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := func(l config.RateLimit) *ratelimit.Keyed {
		k := ratelimit.NewKeyed(l.Events, l.Interval, l.Events)
		go k.Run(ctx, time.Minute)
		return k
	}
	limits := httpapi.Limits{
		API:    limiter(cfg.APILimit),
		Signup: limiter(cfg.SignupLimit),
		Login:  limiter(cfg.LoginLimit),
		Reset:  limiter(cfg.ResetLimit),
		Unlock: limiter(cfg.UnlockLimit),
	}
	proxies, err := httpapi.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("trusted proxies")
	}

	api, err := httpapi.New(httpapi.Services{
		Auth:    authSvc,
		Library: libSvc,
		Share:   shareSvc,
		Flow:    flowSvc,
	}, probe, version,
		httpapi.WithLimits(limits),
		httpapi.WithTrustedProxies(proxies),
		httpapi.WithAppURL(cfg.AppURL),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("http api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcServer := grpc.NewServer()
	httpapi.NewGRPCServer(probe, version).Register(grpcServer)
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen")
	}

	go func() {
		logger.Info().Str("version", version).Str("addr", srv.Addr).Str("store", cfg.Store).Msg("http_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http listen")
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("grpc_listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal().Err(err).Msg("grpc serve")
		}
	}()
	obs.SetReady(true)

	<-ctx.Done()
	logger.Info().Msg("shutting_down")
	obs.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()
	if err := closeDB(); err != nil {
		logger.Error().Err(err).Msg("close db")
	}
	logger.Info().Msg("stopped")
}
