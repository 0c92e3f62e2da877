package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"lostFoundWs/internal/config"
	handler "lostFoundWs/internal/modules/realtime/application/handler"
	usecase "lostFoundWs/internal/modules/realtime/application/usecase"
	"lostFoundWs/internal/modules/realtime/infrastructure"
	transport "lostFoundWs/internal/modules/realtime/interface"
	"lostFoundWs/internal/platform/broker"
	"lostFoundWs/internal/platform/relay"
	"lostFoundWs/internal/shared/auth"
	"lostFoundWs/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logCloser, logger, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: true,
		Directory: cfg.Logging.Directory,
	}, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	if err := run(cfg, logger); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := infrastructure.NewConnectionRegistry(logger)
	hub := infrastructure.NewHub(registry, logger)

	var dispatcherOpts []usecase.DispatcherOption
	var redisRelay *relay.RedisRelay
	if cfg.Redis.Enabled() {
		redisRelay = relay.New(relay.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, logger)
		defer redisRelay.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisRelay.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis relay: %w", err)
		}
		dispatcherOpts = append(dispatcherOpts, usecase.WithRelay(redisRelay))
		slog.Info("redis relay enabled", slog.String("addr", cfg.Redis.Addr), slog.String("channel", cfg.Redis.Channel))
	} else {
		slog.Warn("redis relay disabled: pushes only reach connections held by this instance")
	}
	dispatcher := usecase.NewDispatcher(registry, hub, logger, dispatcherOpts...)

	var owners *usecase.OwnerResolver
	if cfg.CRUD.Enabled() {
		rest, err := infrastructure.NewRESTClient(cfg.CRUD.BaseURL, cfg.CRUD.ServiceToken, cfg.CRUD.Timeout, nil)
		if err != nil {
			return err
		}
		owners = usecase.NewOwnerResolver(infrastructure.NewItemOwnerHTTPClient(rest, logger), cfg.CRUD.OwnerCacheTTL, logger)
		slog.Info("item owner lookup enabled", slog.String("baseUrl", cfg.CRUD.BaseURL))
	}

	router := infrastructure.NewHandlerRegistry()
	for _, h := range handler.DomainEventHandlers(dispatcher, owners) {
		router.Register(h)
	}
	slog.Info("domain event handlers registered", slog.Any("kinds", router.Kinds()))

	validator, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey,
		auth.WithIssuer(cfg.Security.JWTIssuer),
		auth.WithAudience(cfg.Security.JWTAudience),
		auth.WithLeeway(cfg.Security.JWTLeeway))
	if err != nil {
		return fmt.Errorf("jwt validator: %w", err)
	}
	commands := infrastructure.NewCommandProcessor(dispatcher, logger)

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Use(middleware.Recover(), middleware.RequestID())

	transport.RegisterRoutes(e, transport.Routes{
		WSPath: cfg.Websocket.Path,
		Websocket: transport.NewWebsocketHandler(hub, commands, validator, transport.WebsocketOptions{
			Client: infrastructure.ClientConfig{
				SendBuffer:        cfg.Websocket.SendBuffer,
				PingInterval:      cfg.Websocket.PingInterval,
				PongWait:          cfg.Websocket.PongWait,
				WriteWait:         cfg.Websocket.WriteWait,
				MaxMessageBytes:   cfg.Websocket.MaxMessageBytes,
				KeepAliveInterval: cfg.Websocket.KeepAliveInterval,
				HandshakeTimeout:  cfg.Websocket.HandshakeTimeout,
			},
			AllowedOrigins: cfg.Websocket.AllowedOrigins,
		}),
		Negotiate:   transport.NewNegotiateHandler(validator),
		Events:      transport.NewDomainEventHTTPHandler(router),
		Stats:       transport.NewConnectionStatsHandler(registry, hub),
		InternalKey: cfg.Security.InternalAPIKey,
		BodyLimit:   cfg.Server.InternalBodyLimit,
	})
	if cfg.Security.InternalAPIKey == "" {
		slog.Warn("INTERNAL_API_KEY not set: /internal endpoints are unauthenticated")
	}

	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", cfg.Kafka.Topics))
	waitConsumers := broker.StartKafkaConsumers(workers, router, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics, logger)

	relayDone := make(chan struct{})
	if redisRelay != nil {
		go func() {
			defer close(relayDone)
			if err := redisRelay.Run(workers, dispatcher.DeliverRelayed); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("redis relay stopped", slog.Any("error", err))
			}
		}()
	} else {
		close(relayDone)
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("port", cfg.Server.Port), slog.String("wsPath", cfg.Websocket.Path))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case runErr = <-serverErr:
		slog.Error("http server stopped", slog.Any("error", runErr))
	}

	cancelWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
	}
	hub.Close()
	waitConsumers()
	<-relayDone
	return runErr
}
