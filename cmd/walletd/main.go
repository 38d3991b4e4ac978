package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/layer-3/embedwallet/adapters/events"
	"github.com/layer-3/embedwallet/adapters/store"
	"github.com/layer-3/embedwallet/adapters/tokenizer"
	"github.com/layer-3/embedwallet/config"
	"github.com/layer-3/embedwallet/ports"
	"github.com/layer-3/embedwallet/service"
	transport "github.com/layer-3/embedwallet/transport/http"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("WALLETD_CONFIG"), "path to YAML config")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := watermill.NewStdLogger(cfg.Debug, false)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	signKey, err := cfg.SigningKey()
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}
	if signKey == nil {
		logger.Info("No signing key configured, generating an ephemeral one", nil)
		signKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
	}

	st, publisher, closeBackend := backend(cfg, logger)
	defer closeBackend()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		st,
		events.NewWatermillPublisher(publisher),
		service.WithLogger(logger),
		service.WithTTLs(cfg.Session.ChallengeTTL, cfg.Session.AccessTTL, cfg.Session.RefreshTTL),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           transport.SetupRouter(authService, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Listening", watermill.LogFields{"addr": cfg.ListenAddress, "backend": cfg.Backend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", err, nil)
	}
}

// backend builds the token store and event publisher for the configured backend.
func backend(cfg config.Config, logger watermill.LoggerAdapter) (ports.Store, message.Publisher, func()) {
	if cfg.Backend == config.BackendMemory {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
		return store.NewMemoryStore(), pubSub, func() { _ = pubSub.Close() }
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	return store.NewRedisStore(redisClient), publisher, func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
}
