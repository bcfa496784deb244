package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cbodonnell/econempire/pkg/api"
	authproviders "github.com/cbodonnell/econempire/pkg/auth/providers"
	"github.com/cbodonnell/econempire/pkg/config"
	"github.com/cbodonnell/econempire/pkg/game"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/network"
	"github.com/cbodonnell/econempire/pkg/queue"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/cbodonnell/econempire/pkg/version"
	"github.com/cbodonnell/econempire/pkg/workers"
	"golang.org/x/sync/errgroup"
)

func main() {
	wsPort := flag.Int("ws-port", 8888, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", 9090, "API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting game server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	authProvider, err := newAuthProvider(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create auth provider: %v", err))
	}

	repository, err := newRepository(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create repository: %v", err))
	}
	defer repository.Close(context.Background())

	clientManager := network.NewClientManager()
	clientMessageQueue := queue.NewInMemoryQueueWithSize(10000)
	serverEventQueue := queue.NewInMemoryQueueWithSize(1000)
	serverMessageChan := make(chan workers.ServerMessage, workers.ServerMessageChannelSize)

	var originPatterns []string
	for _, origin := range strings.Split(cfg.AllowOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			originPatterns = append(originPatterns, origin)
		}
	}

	networkManagerOpts := network.NewNetworkManagerOptions{
		AuthProvider:      authProvider,
		ClientManager:     clientManager,
		MessageQueue:      clientMessageQueue,
		WSPort:            *wsPort,
		OriginPatterns:    originPatterns,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		CommandRateLimit:  cfg.CommandRateLimit,
		CommandBurst:      cfg.CommandBurst,
	}
	if cfg.WSTLSCertFile != "" && cfg.WSTLSKeyFile != "" {
		networkManagerOpts.WSServerTLS = &network.TLSConfig{
			CertFile: cfg.WSTLSCertFile,
			KeyFile:  cfg.WSTLSKeyFile,
		}
	}
	networkManager := network.NewNetworkManager(networkManagerOpts)

	connectionEventWorker := workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: clientManager.GetConnectionEventChan(),
		ServerEventQueue:    serverEventQueue,
		ClientCloser:        clientManager,
	})

	serverMessageWorker := workers.NewServerMessageWorker(workers.NewServerMessageWorkerOptions{
		Broadcaster:       networkManager,
		ServerMessageChan: serverMessageChan,
	})

	session := game.NewSession(game.NewSessionOptions{
		ClientMessageQueue:  clientMessageQueue,
		ServerEventQueue:    serverEventQueue,
		Repository:          repository,
		ServerMessageChan:   serverMessageChan,
		GameLoopInterval:    cfg.GameLoopInterval,
		CountryReleaseAfter: cfg.CountryReleaseAfter,
		Seed:                cfg.Seed,
	})

	apiServerOpts := api.NewAPIServerOptions{
		Port:         *apiPort,
		AuthProvider: authProvider,
		GameService:  session,
		AllowOrigin:  cfg.AllowOrigin,
	}
	if cfg.APITLSCertFile != "" && cfg.APITLSKeyFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: cfg.APITLSCertFile,
			KeyFile:  cfg.APITLSKeyFile,
		}
	}
	apiServer := api.NewAPIServer(apiServerOpts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		connectionEventWorker.Start(ctx)
		return nil
	})
	g.Go(func() error {
		serverMessageWorker.Start(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info("Starting game session")
		return session.Start(ctx)
	})
	g.Go(func() error {
		return networkManager.Start(ctx)
	})
	g.Go(func() error {
		return apiServer.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped: %v", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}

func newAuthProvider(ctx context.Context, cfg *config.Config) (authproviders.AuthProvider, error) {
	if cfg.FirebaseProjectID != "" {
		log.Info("Verifying tokens with Firebase project %s", cfg.FirebaseProjectID)
		return authproviders.NewFirebaseAuthProvider(ctx, cfg.FirebaseProjectID, cfg.FirebaseAPIKey)
	}
	log.Info("Verifying tokens signed by issuer %s", cfg.JWTIssuer)
	return authproviders.NewJWTAuthProvider(cfg.JWTSecret, cfg.JWTIssuer), nil
}

// newRepository selects the repository from the database URL scheme and
// wraps it with retries.
func newRepository(ctx context.Context, cfg *config.Config) (repositories.Repository, error) {
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v", err)
	}

	var repository repositories.Repository
	switch u.Scheme {
	case "sqlite":
		repository, err = repositories.NewSQLiteRepository(ctx, u.Host+u.Path, cfg.SQLiteMigrations)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite repository: %v", err)
		}
	case "postgresql", "postgres":
		repository, err = repositories.NewPostgresRepository(ctx, u.String(), cfg.PostgresMigrations)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres repository: %v", err)
		}
	case "memory":
		log.Warn("Using in-memory repository, games will not survive a restart")
		repository = repositories.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unknown database type %s", u.Scheme)
	}

	return repositories.NewRetryingRepository(repositories.NewRetryingRepositoryOptions{
		Repository:      repository,
		MaxTries:        cfg.PersistenceMaxTries,
		InitialInterval: cfg.PersistenceBackoff,
	}), nil
}
